package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tbanks7/applyflow/internal/schedule"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daily pipeline daemon",
	Long:  "Runs the pipeline once a day at schedule.run_at; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"queries", len(cfg.Searches.Queries),
		"locations", len(cfg.Searches.Locations),
		"boards", cfg.Searches.Boards,
		"max_age", cfg.Searches.MaxAge.String(),
		"run_at", cfg.Schedule.RunAt,
	)

	daily, err := schedule.New(cfg.Schedule.RunAt, func(ctx context.Context) error {
		return executeRun(ctx, cfg, logger)
	}, logger)
	if err != nil {
		logger.Error("invalid schedule", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := daily.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
