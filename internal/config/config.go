package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the applyflow pipeline.
type Config struct {
	Searches     SearchConfig
	Filters      FilterConfig
	Boards       BoardConfig
	Profile      ProfileConfig
	Generator    GeneratorConfig
	Tracking     TrackingConfig
	Notification NotificationConfig
	Schedule     ScheduleConfig
	HistoryDB    string
}

// SearchConfig describes what to look for and where.
type SearchConfig struct {
	Queries         []string
	Locations       []string
	Boards          []string // subset of: adzuna, jooble, remotive
	Country         string   // adzuna country code, e.g. "ca"
	MaxAge          time.Duration
	ResultsPerQuery int
}

// FilterConfig holds the eligibility predicates.
type FilterConfig struct {
	MaxYearsExperience int
	SeniorKeywords     []string
	JuniorKeywords     []string
	AllowedLocations   []string
}

// BoardConfig holds per-board credentials and politeness settings.
type BoardConfig struct {
	AdzunaAppID  string
	AdzunaAppKey string
	JoobleAPIKey string
	MinDelay     time.Duration // minimum gap between requests to the same board
}

// ProfileConfig points at the candidate profile and document templates.
type ProfileConfig struct {
	Candidate           string // free-text candidate profile fed to the generator
	ResumeTemplate      string // path to the base .tex resume
	CoverLetterTemplate string // path to the .docx cover letter template
	OutputDir           string
}

// GeneratorConfig controls the Anthropic content generator.
type GeneratorConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// TrackingConfig controls the local CSV log and remote Notion tracker.
type TrackingConfig struct {
	CSVPath          string
	NotionEnabled    bool
	NotionAPIKey     string
	NotionDatabaseID string
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// ScheduleConfig holds the daily trigger time.
type ScheduleConfig struct {
	RunAt string // "HH:MM", 24h local time
}

const defaultAnthropicBaseURL = "https://api.anthropic.com"

// Keyword defaults used when the config omits them. These match how
// postings actually phrase seniority.
var (
	defaultSeniorKeywords = []string{
		"senior", "sr.", "lead", "principal", "staff", "architect",
		"head of", "director", "manager", "10+ years", "8+ years", "7+ years",
	}
	defaultJuniorKeywords = []string{
		"junior", "intermediate", "mid-level", "associate", "entry",
		"0-3 years", "1-3 years", "2-4 years", "2-5 years", "3-5 years", "new grad",
	}
)

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Searches     rawSearchConfig    `yaml:"searches"`
	Filters      rawFilterConfig    `yaml:"filters"`
	Boards       rawBoardConfig     `yaml:"boards"`
	Profile      rawProfileConfig   `yaml:"profile"`
	Generator    rawGeneratorConfig `yaml:"generator"`
	Tracking     rawTrackingConfig  `yaml:"tracking"`
	Notification NotificationConfig `yaml:"notification"`
	Schedule     rawScheduleConfig  `yaml:"schedule"`
	HistoryDB    string             `yaml:"history_db"`
}

type rawSearchConfig struct {
	Queries         []string `yaml:"queries"`
	Locations       []string `yaml:"locations"`
	Boards          []string `yaml:"boards"`
	Country         string   `yaml:"country"`
	MaxAge          string   `yaml:"max_age"`
	ResultsPerQuery int      `yaml:"results_per_query"`
}

type rawFilterConfig struct {
	MaxYearsExperience int      `yaml:"max_years_experience"`
	SeniorKeywords     []string `yaml:"senior_keywords"`
	JuniorKeywords     []string `yaml:"junior_keywords"`
	AllowedLocations   []string `yaml:"allowed_locations"`
}

type rawBoardConfig struct {
	AdzunaAppID  string `yaml:"adzuna_app_id"`
	AdzunaAppKey string `yaml:"adzuna_app_key"`
	JoobleAPIKey string `yaml:"jooble_api_key"`
	MinDelay     string `yaml:"min_delay"`
}

type rawProfileConfig struct {
	Candidate           string `yaml:"candidate"`
	ResumeTemplate      string `yaml:"resume_template"`
	CoverLetterTemplate string `yaml:"cover_letter_template"`
	OutputDir           string `yaml:"output_dir"`
}

type rawGeneratorConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

type rawTrackingConfig struct {
	CSVPath string          `yaml:"csv_path"`
	Notion  rawNotionConfig `yaml:"notion"`
}

type rawNotionConfig struct {
	Enabled    bool   `yaml:"enabled"`
	APIKey     string `yaml:"api_key"`
	DatabaseID string `yaml:"database_id"`
}

type rawScheduleConfig struct {
	RunAt string `yaml:"run_at"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables so secrets stay out of the file.
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	maxAge := 24 * time.Hour
	if raw.Searches.MaxAge != "" {
		maxAge, err = time.ParseDuration(raw.Searches.MaxAge)
		if err != nil {
			return nil, fmt.Errorf("parse searches.max_age %q: %w", raw.Searches.MaxAge, err)
		}
	}

	minDelay := 2 * time.Second
	if raw.Boards.MinDelay != "" {
		minDelay, err = time.ParseDuration(raw.Boards.MinDelay)
		if err != nil {
			return nil, fmt.Errorf("parse boards.min_delay %q: %w", raw.Boards.MinDelay, err)
		}
	}

	genTimeout := 120 * time.Second
	if raw.Generator.Timeout != "" {
		genTimeout, err = time.ParseDuration(raw.Generator.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse generator.timeout %q: %w", raw.Generator.Timeout, err)
		}
	}

	genBaseURL := raw.Generator.BaseURL
	if genBaseURL == "" {
		genBaseURL = defaultAnthropicBaseURL
	}

	resultsPerQuery := raw.Searches.ResultsPerQuery
	if resultsPerQuery <= 0 {
		resultsPerQuery = 20
	}

	maxYears := raw.Filters.MaxYearsExperience
	if maxYears <= 0 {
		maxYears = 5
	}

	seniorKw := raw.Filters.SeniorKeywords
	if len(seniorKw) == 0 {
		seniorKw = defaultSeniorKeywords
	}
	juniorKw := raw.Filters.JuniorKeywords
	if len(juniorKw) == 0 {
		juniorKw = defaultJuniorKeywords
	}

	outputDir := raw.Profile.OutputDir
	if outputDir == "" {
		outputDir = "output"
	}

	csvPath := raw.Tracking.CSVPath
	if csvPath == "" {
		csvPath = "applied_jobs.csv"
	}

	historyDB := raw.HistoryDB
	if historyDB == "" {
		historyDB = "runs.db"
	}

	runAt := raw.Schedule.RunAt
	if runAt == "" {
		runAt = "09:00"
	}

	cfg := &Config{
		Searches: SearchConfig{
			Queries:         raw.Searches.Queries,
			Locations:       raw.Searches.Locations,
			Boards:          raw.Searches.Boards,
			Country:         raw.Searches.Country,
			MaxAge:          maxAge,
			ResultsPerQuery: resultsPerQuery,
		},
		Filters: FilterConfig{
			MaxYearsExperience: maxYears,
			SeniorKeywords:     seniorKw,
			JuniorKeywords:     juniorKw,
			AllowedLocations:   raw.Filters.AllowedLocations,
		},
		Boards: BoardConfig{
			AdzunaAppID:  raw.Boards.AdzunaAppID,
			AdzunaAppKey: raw.Boards.AdzunaAppKey,
			JoobleAPIKey: raw.Boards.JoobleAPIKey,
			MinDelay:     minDelay,
		},
		Profile: ProfileConfig{
			Candidate:           raw.Profile.Candidate,
			ResumeTemplate:      raw.Profile.ResumeTemplate,
			CoverLetterTemplate: raw.Profile.CoverLetterTemplate,
			OutputDir:           outputDir,
		},
		Generator: GeneratorConfig{
			APIKey:  raw.Generator.APIKey,
			Model:   raw.Generator.Model,
			BaseURL: genBaseURL,
			Timeout: genTimeout,
		},
		Tracking: TrackingConfig{
			CSVPath:          csvPath,
			NotionEnabled:    raw.Tracking.Notion.Enabled,
			NotionAPIKey:     raw.Tracking.Notion.APIKey,
			NotionDatabaseID: raw.Tracking.Notion.DatabaseID,
		},
		Notification: raw.Notification,
		Schedule:     ScheduleConfig{RunAt: runAt},
		HistoryDB:    historyDB,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if len(cfg.Searches.Queries) == 0 {
		return fmt.Errorf("at least one search query is required")
	}
	if len(cfg.Searches.Locations) == 0 {
		return fmt.Errorf("at least one search location is required")
	}
	if len(cfg.Searches.Boards) == 0 {
		return fmt.Errorf("at least one board must be enabled")
	}
	for _, b := range cfg.Searches.Boards {
		switch b {
		case "adzuna", "jooble", "remotive":
		default:
			return fmt.Errorf("unknown board %q (supported: adzuna, jooble, remotive)", b)
		}
		if b == "adzuna" && (cfg.Boards.AdzunaAppID == "" || cfg.Boards.AdzunaAppKey == "") {
			return fmt.Errorf("boards.adzuna_app_id and boards.adzuna_app_key are required when adzuna is enabled")
		}
		if b == "jooble" && cfg.Boards.JoobleAPIKey == "" {
			return fmt.Errorf("boards.jooble_api_key is required when jooble is enabled")
		}
	}

	if cfg.Searches.MaxAge < 1*time.Hour || cfg.Searches.MaxAge > 7*24*time.Hour {
		return fmt.Errorf("searches.max_age must be between 1h and 168h, got %v", cfg.Searches.MaxAge)
	}

	if cfg.Generator.APIKey == "" {
		return fmt.Errorf("generator.api_key is required")
	}
	if cfg.Generator.Model == "" {
		return fmt.Errorf("generator.model is required")
	}

	if cfg.Profile.ResumeTemplate == "" {
		return fmt.Errorf("profile.resume_template is required")
	}
	if strings.TrimSpace(cfg.Profile.Candidate) == "" {
		return fmt.Errorf("profile.candidate is required")
	}

	if cfg.Tracking.NotionEnabled {
		if cfg.Tracking.NotionAPIKey == "" {
			return fmt.Errorf("tracking.notion.api_key is required when notion is enabled")
		}
		if cfg.Tracking.NotionDatabaseID == "" {
			return fmt.Errorf("tracking.notion.database_id is required when notion is enabled")
		}
	}

	if cfg.Notification.Type == "slack" {
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	}

	if _, _, err := ParseRunAt(cfg.Schedule.RunAt); err != nil {
		return err
	}

	return nil
}

// ParseRunAt parses an "HH:MM" 24-hour time of day.
func ParseRunAt(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("parse schedule.run_at %q (want HH:MM): %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}
