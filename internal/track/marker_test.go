package track

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/tbanks7/applyflow/internal/model"
)

func TestMarkerUpdatesLocalLog(t *testing.T) {
	log := NewCSVLog(filepath.Join(t.TempDir(), "applied.csv"), discardLogger())
	rec := sampleRecord("Initech", "Backend Engineer")
	log.Append(rec)

	m := NewMarker(log, nil, discardLogger())
	if err := m.MarkApplied(context.Background(), rec); err != nil {
		t.Fatalf("MarkApplied: %v", err)
	}

	recs, _ := log.Load()
	if recs[0].Status != model.StatusApplied {
		t.Errorf("status = %q, want %q", recs[0].Status, model.StatusApplied)
	}
}

func TestMarkerToleratesRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	log := NewCSVLog(filepath.Join(t.TempDir(), "applied.csv"), discardLogger())
	rec := sampleRecord("Initech", "Backend Engineer")
	rec.NotionPageID = "page-1"
	log.Append(rec)

	m := NewMarker(log, testTracker(srv), discardLogger())
	if err := m.MarkApplied(context.Background(), rec); err != nil {
		t.Fatalf("MarkApplied must tolerate a remote failure: %v", err)
	}

	recs, _ := log.Load()
	if recs[0].Status != model.StatusApplied {
		t.Error("local status must advance despite the remote failure")
	}
}

func TestMarkerUnknownRecordFails(t *testing.T) {
	log := NewCSVLog(filepath.Join(t.TempDir(), "applied.csv"), discardLogger())

	m := NewMarker(log, nil, discardLogger())
	rec := sampleRecord("Initech", "Backend Engineer")
	err := m.MarkApplied(context.Background(), rec)
	if err == nil {
		t.Fatal("want error for a record that was never tracked")
	}
}
