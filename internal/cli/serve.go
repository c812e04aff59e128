package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/botlens/botlens/internal/api"
	"github.com/botlens/botlens/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and snapshot scheduler",
	Long:  `Start the HTTP API and the daily snapshot scheduler. Runs until interrupted.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	logger.Info("🚀 Starting Botlens")
	logger.Info("===================")

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	server := api.NewServer(aggregator, store, sched, cfg)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("API listening on %s", cfg.API.Addr)
		errChan <- server.Run(cfg.API.Addr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	case <-sigChan:
		logger.Info("⏸️  Stopping...")
	}

	logger.Info("✅ Stopped. Goodbye!")
	return nil
}
