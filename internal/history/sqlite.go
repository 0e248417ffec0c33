package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tbanks7/applyflow/internal/model"
)

// RunStore keeps per-run summaries in a SQLite database so the history
// command can show what past runs did. It is diagnostics only; losing it
// costs nothing but hindsight.
type RunStore struct {
	db *sql.DB
}

// NewRunStore opens (or creates) the database at dbPath and ensures the
// runs table exists.
func NewRunStore(dbPath string) (*RunStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS runs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at  DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		fetched     INTEGER NOT NULL,
		eligible    INTEGER NOT NULL,
		new_jobs    INTEGER NOT NULL,
		succeeded   INTEGER NOT NULL,
		failed      INTEGER NOT NULL,
		failed_stages TEXT NOT NULL DEFAULT '',
		error       TEXT NOT NULL DEFAULT ''
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating runs table: %w", err)
	}

	return &RunStore{db: db}, nil
}

// SaveRun appends one run summary.
func (s *RunStore) SaveRun(sum model.RunSummary) error {
	stages := ""
	if len(sum.FailedByStage) > 0 {
		b, err := json.Marshal(sum.FailedByStage)
		if err != nil {
			return fmt.Errorf("encoding failure stages: %w", err)
		}
		stages = string(b)
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (started_at, finished_at, fetched, eligible, new_jobs, succeeded, failed, failed_stages, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.StartedAt.UTC().Format(time.RFC3339),
		sum.FinishedAt.UTC().Format(time.RFC3339),
		sum.Fetched, sum.Eligible, sum.New, sum.Succeeded, sum.Failed, stages, sum.Error,
	)
	if err != nil {
		return fmt.Errorf("saving run summary: %w", err)
	}
	return nil
}

// Recent returns up to n summaries, newest first.
func (s *RunStore) Recent(n int) ([]model.RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT started_at, finished_at, fetched, eligible, new_jobs, succeeded, failed, failed_stages, error
		 FROM runs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var sums []model.RunSummary
	for rows.Next() {
		var sum model.RunSummary
		var started, finished, stages string
		if err := rows.Scan(&started, &finished,
			&sum.Fetched, &sum.Eligible, &sum.New, &sum.Succeeded, &sum.Failed, &stages, &sum.Error); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		sum.StartedAt, _ = time.Parse(time.RFC3339, started)
		sum.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		if stages != "" {
			if err := json.Unmarshal([]byte(stages), &sum.FailedByStage); err != nil {
				return nil, fmt.Errorf("decoding failure stages: %w", err)
			}
		}
		sums = append(sums, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return sums, nil
}

// Close closes the underlying database connection.
func (s *RunStore) Close() error {
	return s.db.Close()
}
