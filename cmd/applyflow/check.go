package main

import (
	"context"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbanks7/applyflow/internal/filter"
	"github.com/tbanks7/applyflow/internal/source"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Discover once, print eligible jobs, exit",
	Long: "One-shot discovery: fetches postings, applies the filter and dedup, and\n" +
		"prints what a real run would process. Nothing is generated or tracked.\n" +
		"Also verifies the local toolchain and the Notion connection.",
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("check mode: nothing will be generated or tracked")

	// Toolchain and template checks.
	for _, bin := range []string{"pdflatex", "soffice"} {
		if _, err := exec.LookPath(bin); err != nil {
			logger.Warn("binary not found in PATH, compilation will fail", "binary", bin)
		}
	}
	if _, err := os.Stat(cfg.Profile.ResumeTemplate); err != nil {
		logger.Warn("resume template not readable", "path", cfg.Profile.ResumeTemplate, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	csvLog, remote := buildTrackers(cfg, logger)
	if remote != nil {
		if err := remote.Ping(ctx); err != nil {
			logger.Warn("notion database unreachable", "error", err)
		} else {
			logger.Info("notion database reachable")
		}
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	boards := buildBoards(cfg, httpClient, logger)
	src := source.NewAggregateSource(boards, cfg.Searches.Queries, cfg.Searches.Locations,
		cfg.Searches.MaxAge, logger)
	eng := filter.New(cfg.Filters.MaxYearsExperience, cfg.Filters.SeniorKeywords,
		cfg.Filters.JuniorKeywords, cfg.Filters.AllowedLocations)

	keys, err := csvLog.Keys()
	if err != nil {
		logger.Error("failed to load tracking log", "error", err)
		os.Exit(1)
	}

	jobs, err := src.Fetch(ctx)
	if err != nil {
		logger.Error("fetch failed", "error", err)
		os.Exit(1)
	}

	eligible, fresh := 0, 0
	for _, job := range jobs {
		decision := eng.Decide(job)
		if !decision.Eligible {
			logger.Debug("filtered out",
				"company", job.Company, "title", job.Title, "reason", decision.Reason)
			continue
		}
		eligible++
		if _, seen := keys[job.Key()]; seen {
			continue
		}
		fresh++
		logger.Info("would process",
			"company", job.Company, "title", job.Title,
			"location", job.Location, "source", job.Source, "url", job.URL)
	}

	logger.Info("check complete", "fetched", len(jobs), "eligible", eligible, "new", fresh)
	return nil
}
