// Command newsctl runs maintenance jobs against the configured store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fabriziosalmi/newsportal/internal/config"
	"github.com/fabriziosalmi/newsportal/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "newsctl",
		Short:         "newsctl - maintenance commands for the news summary store",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(cleanupCmd())
	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(enqueueCleanupCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(archiveCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// setup loads .env, config and a logger. CLI output goes to stdout, so logs
// stay at warn unless NEWSPORTAL_APP_LOG_LEVEL says otherwise.
func setup() (*config.Config, *zap.Logger, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level := cfg.App.LogLevel
	if level == "" {
		level = "warn"
	}
	log, err := logger.New(cfg.App.Env, level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
