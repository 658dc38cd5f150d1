package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ariefcatur/go-farm-market/internal/config"
	"github.com/ariefcatur/go-farm-market/internal/logx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "api",
	Short: "Farm market backend",
	Long: `Backend of the farm-to-consumer marketplace: farmers publish products,
consumers browse the catalog and place single-farmer orders.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		cfg = config.Load()
		logger = logx.New(os.Stdout, cfg.LogLevel, cfg.LogFormat).With("service", cfg.ServiceName)
		slog.SetDefault(logger)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
