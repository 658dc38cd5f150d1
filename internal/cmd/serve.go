package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-farm-market/internal/auth"
	"github.com/ariefcatur/go-farm-market/internal/catalog"
	"github.com/ariefcatur/go-farm-market/internal/httpx"
	kafkax "github.com/ariefcatur/go-farm-market/internal/kafka"
	"github.com/ariefcatur/go-farm-market/internal/orders"
	"github.com/ariefcatur/go-farm-market/internal/postgres"
	"github.com/ariefcatur/go-farm-market/internal/redisx"
	"github.com/ariefcatur/go-farm-market/internal/users"
	"github.com/spf13/cobra"
)

var migrateOnServe bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnServe, "migrate", false, "apply pending migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()
	if migrateOnServe {
		if _, err := postgres.Migrate(ctx, db, logger); err != nil {
			return err
		}
	}

	userRepo := &users.Repo{DB: db}
	var orderStore orders.Store = &orders.Repo{DB: db}
	deps := httpx.Deps{
		Log:     logger,
		Timeout: cfg.RequestTimeout,
		Ready:   map[string]func(context.Context) error{"postgres": db.Ping},
	}

	if cfg.RedisAddr != "" {
		rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		orderStore = &orders.CachedStore{Store: orderStore, Redis: rdb, Log: logger}
		deps.Idem = &httpx.RedisIdempotency{Redis: rdb}
		deps.Ready["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		logger.Info("redis enabled", "addr", cfg.RedisAddr)
	}

	var events orders.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger)
		prod.Start()
		defer func() {
			prod.Close()
			prod.WaitClosed()
		}()
		events = &orders.KafkaPublisher{Producer: prod, Service: cfg.ServiceName}
		logger.Info("order events enabled", "brokers", cfg.KafkaBrokers)
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	deps.Authn = &auth.Authenticator{Issuer: issuer, Users: userRepo}
	deps.Users = users.NewService(userRepo, issuer, logger)
	deps.Catalog = catalog.NewService(&catalog.Repo{DB: db}, logger)
	deps.Orders = orders.NewService(orderStore, events, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpx.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
