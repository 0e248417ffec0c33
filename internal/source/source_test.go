package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tbanks7/applyflow/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubBoard returns canned results or an error for every search.
type stubBoard struct {
	name string
	jobs []model.JobRecord
	err  error
}

func (b *stubBoard) Name() string { return b.name }

func (b *stubBoard) Search(_ context.Context, _, _ string) ([]model.JobRecord, error) {
	return b.jobs, b.err
}

func job(company, title, url string) model.JobRecord {
	return model.JobRecord{Company: company, Title: title, URL: url}
}

func TestFetch_MergesAndDedupes(t *testing.T) {
	// Both boards return the same posting under the same URL, plus the
	// second board lists it again under a different URL (same company+title).
	a := &stubBoard{name: "a", jobs: []model.JobRecord{
		job("Acme", "Backend Engineer", "https://x.com/1"),
		job("Beta", "Fullstack Developer", "https://x.com/2"),
	}}
	b := &stubBoard{name: "b", jobs: []model.JobRecord{
		job("Acme", "Backend Engineer", "https://x.com/1"),
		job("Acme", "Backend Engineer", "https://other.com/99"),
	}}

	src := NewAggregateSource([]model.Board{a, b}, []string{"q"}, []string{"l"}, 24*time.Hour, discardLogger())
	got, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 deduplicated jobs, got %d: %+v", len(got), got)
	}
}

func TestFetch_PartialBoardFailureTolerated(t *testing.T) {
	good := &stubBoard{name: "good", jobs: []model.JobRecord{job("Acme", "Engineer", "https://x.com/1")}}
	bad := &stubBoard{name: "bad", err: errors.New("connection refused")}

	src := NewAggregateSource([]model.Board{good, bad}, []string{"q"}, []string{"l"}, 24*time.Hour, discardLogger())
	got, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("partial failure should not be fatal: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 job from the healthy board, got %d", len(got))
	}
}

func TestFetch_AllBoardsFailed(t *testing.T) {
	bad1 := &stubBoard{name: "bad1", err: errors.New("timeout")}
	bad2 := &stubBoard{name: "bad2", err: errors.New("dns failure")}

	src := NewAggregateSource([]model.Board{bad1, bad2}, []string{"q"}, []string{"l"}, 24*time.Hour, discardLogger())
	_, err := src.Fetch(context.Background())
	if !errors.Is(err, model.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestFetch_DropsStalePostings(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now().Add(-1 * time.Hour)

	stale := job("Acme", "Old Role", "https://x.com/old")
	stale.PostedAt = &old
	fresh := job("Acme", "New Role", "https://x.com/new")
	fresh.PostedAt = &recent
	undated := job("Acme", "Undated Role", "https://x.com/undated")

	b := &stubBoard{name: "b", jobs: []model.JobRecord{stale, fresh, undated}}

	src := NewAggregateSource([]model.Board{b}, []string{"q"}, []string{"l"}, 24*time.Hour, discardLogger())
	got, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected stale posting dropped, got %d jobs", len(got))
	}
	for _, j := range got {
		if j.Title == "Old Role" {
			t.Error("stale posting survived the recency filter")
		}
	}
}
