package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tbanks7/applyflow/internal/model"
)

// AggregateSource fans a set of search queries and locations out over every
// configured board, sequentially, and merges the results into one
// deduplicated batch. Individual board failures are tolerated and logged;
// the fetch fails only when every single call failed.
type AggregateSource struct {
	boards    []model.Board
	queries   []string
	locations []string
	maxAge    time.Duration
	logger    *slog.Logger
}

// NewAggregateSource creates a source over the given boards.
func NewAggregateSource(boards []model.Board, queries, locations []string, maxAge time.Duration, logger *slog.Logger) *AggregateSource {
	return &AggregateSource{
		boards:    boards,
		queries:   queries,
		locations: locations,
		maxAge:    maxAge,
		logger:    logger,
	}
}

// Fetch runs every (board, query, location) combination and returns the
// merged, deduplicated, recency-filtered batch. Returns
// model.ErrSourceUnavailable when all calls failed.
func (s *AggregateSource) Fetch(ctx context.Context) ([]model.JobRecord, error) {
	var all []model.JobRecord
	attempts, failures := 0, 0

	for _, b := range s.boards {
		for _, query := range s.queries {
			for _, location := range s.locations {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}

				attempts++
				jobs, err := b.Search(ctx, query, location)
				if err != nil {
					failures++
					s.logger.Warn("board search failed",
						"board", b.Name(),
						"query", query,
						"location", location,
						"error", err,
					)
					continue
				}

				s.logger.Debug("board search complete",
					"board", b.Name(),
					"query", query,
					"location", location,
					"results", len(jobs),
				)
				all = append(all, jobs...)
			}
		}
	}

	if attempts > 0 && failures == attempts {
		return nil, fmt.Errorf("%d/%d board searches failed: %w", failures, attempts, model.ErrSourceUnavailable)
	}

	fresh := s.dropStale(all)
	deduped := dedupe(fresh)

	s.logger.Info("fetch complete",
		"raw", len(all),
		"fresh", len(fresh),
		"deduped", len(deduped),
		"failed_searches", failures,
	)

	return deduped, nil
}

// dropStale removes postings older than maxAge. Jobs without a posting time
// are kept; some boards never report one.
func (s *AggregateSource) dropStale(jobs []model.JobRecord) []model.JobRecord {
	cutoff := time.Now().Add(-s.maxAge)
	fresh := make([]model.JobRecord, 0, len(jobs))
	for _, j := range jobs {
		if j.PostedAt != nil && j.PostedAt.Before(cutoff) {
			continue
		}
		fresh = append(fresh, j)
	}
	return fresh
}

// dedupe removes duplicate postings within a single batch: first by URL,
// then by (company, title). Different boards frequently list the same
// posting under different URLs.
func dedupe(jobs []model.JobRecord) []model.JobRecord {
	seenURL := make(map[string]bool, len(jobs))
	seenPair := make(map[string]bool, len(jobs))

	out := make([]model.JobRecord, 0, len(jobs))
	for _, j := range jobs {
		url := strings.ToLower(strings.TrimSpace(j.URL))
		if url != "" && seenURL[url] {
			continue
		}

		pair := strings.ToLower(strings.TrimSpace(j.Company)) + "|" + strings.ToLower(strings.TrimSpace(j.Title))
		if seenPair[pair] {
			continue
		}

		seenURL[url] = true
		seenPair[pair] = true
		out = append(out, j)
	}
	return out
}
