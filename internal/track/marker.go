package track

import (
	"context"
	"log/slog"

	"github.com/tbanks7/applyflow/internal/model"
)

// Marker performs the Ready to Apply → Applied transition across both
// stores. As with the sink, the local update is authoritative and a remote
// failure is logged, not propagated.
type Marker struct {
	local  *CSVLog
	remote *NotionTracker // nil when Notion tracking is disabled
	logger *slog.Logger
}

func NewMarker(local *CSVLog, remote *NotionTracker, logger *slog.Logger) *Marker {
	return &Marker{local: local, remote: remote, logger: logger}
}

// MarkApplied moves rec to StatusApplied in the local log and, when
// configured, on its Notion page.
func (m *Marker) MarkApplied(ctx context.Context, rec model.ApplicationRecord) error {
	if err := m.local.UpdateStatus(rec.Key, model.StatusApplied); err != nil {
		return &model.TrackingError{Target: model.TargetLocal, Err: err}
	}

	if m.remote != nil && rec.NotionPageID != "" {
		if err := m.remote.UpdateStatus(ctx, rec.NotionPageID, model.StatusApplied); err != nil {
			m.logger.Warn("notion status update failed",
				"page_id", rec.NotionPageID, "error", err)
		}
	}
	return nil
}
