package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tbanks7/applyflow/internal/board"
	"github.com/tbanks7/applyflow/internal/compile"
	"github.com/tbanks7/applyflow/internal/config"
	"github.com/tbanks7/applyflow/internal/dedup"
	"github.com/tbanks7/applyflow/internal/filter"
	"github.com/tbanks7/applyflow/internal/generate"
	"github.com/tbanks7/applyflow/internal/history"
	"github.com/tbanks7/applyflow/internal/model"
	"github.com/tbanks7/applyflow/internal/notifier"
	"github.com/tbanks7/applyflow/internal/pipeline"
	"github.com/tbanks7/applyflow/internal/ratelimit"
	"github.com/tbanks7/applyflow/internal/retry"
	"github.com/tbanks7/applyflow/internal/source"
	"github.com/tbanks7/applyflow/internal/track"
)

// Pause between consecutive LLM generations so back-to-back jobs don't trip
// API rate limits.
const generationPause = 30 * time.Second

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "applyflow",
	Short: "Daily job application pipeline",
	Long: "ApplyFlow discovers fresh postings, tailors a resume and cover letter\n" +
		"for each one, and tracks everything locally and in Notion.",
	// Default to `start` so that `applyflow` with no args runs the daemon.
	RunE: runStart,
}

func init() {
	// Secrets come from the environment; a .env next to the binary is the
	// usual way to provide them outside systemd.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: APPLYFLOW_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > APPLYFLOW_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("APPLYFLOW_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

func buildBoards(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) []model.Board {
	limiter := ratelimit.NewBoardRateLimiter(cfg.Boards.MinDelay)

	country := cfg.Searches.Country
	if country == "" {
		country = "us"
	}

	var boards []model.Board
	for _, name := range cfg.Searches.Boards {
		var b model.Board
		switch name {
		case "adzuna":
			b = board.NewAdzunaBoard(cfg.Boards.AdzunaAppID, cfg.Boards.AdzunaAppKey,
				country, cfg.Searches.MaxAge, cfg.Searches.ResultsPerQuery, httpClient)
		case "jooble":
			b = board.NewJoobleBoard(cfg.Boards.JoobleAPIKey, httpClient)
		case "remotive":
			b = board.NewRemotiveBoard(cfg.Searches.ResultsPerQuery, httpClient)
		default:
			continue // validated at load time
		}

		b = retry.NewRetryBoard(b, 2, 5*time.Second, logger)
		b = ratelimit.NewRateLimitedBoard(b, limiter)
		boards = append(boards, b)
		logger.Info("registered board", "name", name)
	}
	return boards
}

func buildTrackers(cfg *config.Config, logger *slog.Logger) (*track.CSVLog, *track.NotionTracker) {
	csvLog := track.NewCSVLog(cfg.Tracking.CSVPath, logger)

	var remote *track.NotionTracker
	if cfg.Tracking.NotionEnabled {
		remote = track.NewNotionTracker(cfg.Tracking.NotionAPIKey, cfg.Tracking.NotionDatabaseID, logger)
		logger.Info("notion tracking enabled")
	}
	return csvLog, remote
}

// buildPipeline wires one complete pipeline from config.
func buildPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	boards := buildBoards(cfg, httpClient, logger)
	if len(boards) == 0 {
		return nil, fmt.Errorf("no boards configured")
	}
	src := source.NewAggregateSource(boards, cfg.Searches.Queries, cfg.Searches.Locations,
		cfg.Searches.MaxAge, logger)

	eng := filter.New(cfg.Filters.MaxYearsExperience, cfg.Filters.SeniorKeywords,
		cfg.Filters.JuniorKeywords, cfg.Filters.AllowedLocations)

	csvLog, remote := buildTrackers(cfg, logger)
	keys, err := csvLog.Keys()
	if err != nil {
		return nil, fmt.Errorf("loading processed jobs: %w", err)
	}
	keyList := make([]string, 0, len(keys))
	for k := range keys {
		keyList = append(keyList, k)
	}
	processed := dedup.NewTracker(keyList)
	logger.Info("tracking log loaded", "processed_jobs", len(keyList))

	provider := generate.NewAnthropicProvider(cfg.Generator.BaseURL, cfg.Generator.APIKey,
		cfg.Generator.Model, 8192, &http.Client{Timeout: cfg.Generator.Timeout})
	gen := generate.NewGenerator(provider, cfg.Profile.Candidate, cfg.Profile.ResumeTemplate, logger)

	comp := compile.New(cfg.Profile.OutputDir, cfg.Profile.CoverLetterTemplate, logger)
	sink := track.NewDualSink(csvLog, remote, logger)
	n := setupNotifier(cfg, httpClient, logger)

	return pipeline.New(src, eng, processed, gen, comp, sink, n, generationPause, logger), nil
}

// executeRun runs one pipeline cycle and records its summary in the run
// history database. History failures are logged and swallowed.
func executeRun(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	sum, runErr := p.Run(ctx)

	store, err := history.NewRunStore(cfg.HistoryDB)
	if err != nil {
		logger.Warn("run history unavailable", "error", err)
	} else {
		defer store.Close()
		if err := store.SaveRun(sum); err != nil {
			logger.Warn("failed to save run summary", "error", err)
		}
	}

	return runErr
}
