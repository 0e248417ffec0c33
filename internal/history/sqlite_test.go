package history

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/tbanks7/applyflow/internal/model"
)

func newTestStore(t *testing.T) *RunStore {
	t.Helper()
	store, err := NewRunStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewRunStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndRecent(t *testing.T) {
	store := newTestStore(t)

	sum := model.RunSummary{
		StartedAt:  time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 8, 28, 9, 5, 0, 0, time.UTC),
		Fetched:    40,
		Eligible:   12,
		New:        5,
		Succeeded:  4,
		Failed:     2,
		FailedByStage: map[string]int{
			model.StageGeneration:    1,
			model.StageResumeCompile: 1,
		},
	}
	if err := store.SaveRun(sum); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d summaries, want 1", len(got))
	}
	if !reflect.DeepEqual(got[0], sum) {
		t.Errorf("roundtrip mismatch:\n got %+v\nwant %+v", got[0], sum)
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		sum := model.RunSummary{
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
			Fetched:    i,
		}
		if err := store.SaveRun(sum); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	got, err := store.Recent(3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d summaries, want 3", len(got))
	}
	// Newest first.
	for i, want := range []int{4, 3, 2} {
		if got[i].Fetched != want {
			t.Errorf("summary %d fetched = %d, want %d", i, got[i].Fetched, want)
		}
	}
}

func TestRecentEmptyStore(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d summaries from an empty store", len(got))
	}
}

func TestRunSummaryWithError(t *testing.T) {
	store := newTestStore(t)

	sum := model.RunSummary{
		StartedAt:  time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 8, 28, 9, 0, 10, 0, time.UTC),
		Error:      "all job boards unavailable",
	}
	if err := store.SaveRun(sum); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := store.Recent(1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if got[0].Error != sum.Error {
		t.Errorf("error = %q, want %q", got[0].Error, sum.Error)
	}
}
