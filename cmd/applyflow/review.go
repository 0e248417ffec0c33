package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tbanks7/applyflow/internal/review"
	"github.com/tbanks7/applyflow/internal/track"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review prepared applications",
	Long: "Opens an interactive list of tracked applications. Press 'a' to mark\n" +
		"one as applied (updates the CSV log and, if configured, Notion).",
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	csvLog, remote := buildTrackers(cfg, logger)
	recs, err := csvLog.Load()
	if err != nil {
		logger.Error("failed to load tracking log", "error", err)
		os.Exit(1)
	}
	if len(recs) == 0 {
		logger.Info("no tracked applications yet")
		return nil
	}

	marker := track.NewMarker(csvLog, remote, logger)
	return review.Run(recs, marker)
}
