package track

import (
	"context"
	"log/slog"

	"github.com/tbanks7/applyflow/internal/model"
)

// Ensure DualSink implements model.Sink.
var _ model.Sink = (*DualSink)(nil)

// localLog is the CSVLog surface the sink needs.
type localLog interface {
	Append(rec model.ApplicationRecord) error
}

// remoteTracker is the NotionTracker surface the sink needs.
type remoteTracker interface {
	Create(ctx context.Context, rec model.ApplicationRecord) (string, error)
}

// DualSink writes each record to the remote tracker and then commits it to
// the local log. The local append is the durable commit; a remote failure
// is reported but never blocks it. Writing remote first means a crash
// between the two leaves a Notion page without a local row, which Create's
// URL lookup reconciles on the retry.
type DualSink struct {
	local  localLog
	remote remoteTracker // nil when Notion tracking is disabled
	logger *slog.Logger
}

func NewDualSink(local *CSVLog, remote *NotionTracker, logger *slog.Logger) *DualSink {
	s := &DualSink{local: local, logger: logger}
	if remote != nil {
		s.remote = remote
	}
	return s
}

// Record persists rec to both stores. On return with a nil error, or with a
// remote-target TrackingError, the local commit has happened and the job
// must be marked processed. Only a local-target TrackingError means the job
// was not committed.
func (s *DualSink) Record(ctx context.Context, rec *model.ApplicationRecord) error {
	var remoteErr error
	if s.remote != nil {
		pageID, err := s.remote.Create(ctx, *rec)
		if err != nil {
			s.logger.Warn("remote tracking write failed, local log still authoritative",
				"company", rec.Job.Company, "title", rec.Job.Title, "error", err)
			remoteErr = &model.TrackingError{Target: model.TargetRemote, Err: err}
		} else {
			rec.NotionPageID = pageID
		}
	}

	if err := s.local.Append(*rec); err != nil {
		return &model.TrackingError{Target: model.TargetLocal, Err: err}
	}
	return remoteErr
}
