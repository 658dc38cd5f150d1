package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	kafkax "github.com/ariefcatur/go-farm-market/internal/kafka"
	"github.com/ariefcatur/go-farm-market/internal/notify"
	"github.com/ariefcatur/go-farm-market/internal/orders"
	"github.com/ariefcatur/go-farm-market/internal/redisx"
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Consume order events and notify farmers and consumers",
	RunE:  runNotify,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}

func runNotify(cmd *cobra.Command, args []string) error {
	if len(cfg.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if cfg.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer rdb.Close()

	svc := &notify.Service{
		Dedup:  &notify.RedisDeduper{Redis: rdb, Service: "notify"},
		Sender: notify.LogSender{Log: logger},
		Log:    logger,
	}
	topics := []string{orders.TopicOrderCreated, orders.TopicOrderStatusChanged}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifyGroup, topics, cfg.NotifyWorkers, logger)

	logger.Info("notify consumer started", "group", cfg.NotifyGroup, "topics", topics, "workers", cfg.NotifyWorkers)
	if err := cons.Start(ctx, svc.HandleMessage); err != nil {
		return fmt.Errorf("consumer: %w", err)
	}
	logger.Info("notify consumer stopped")
	return nil
}
