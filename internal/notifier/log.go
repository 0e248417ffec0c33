package notifier

import (
	"log/slog"

	"github.com/tbanks7/applyflow/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes prepared applications to the given logger as structured
// messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each prepared application.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each record with company, title, URL and artifact paths.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(recs []model.ApplicationRecord) error {
	for _, r := range recs {
		n.logger.Info("application ready",
			"company", r.Job.Company,
			"title", r.Job.Title,
			"url", r.Job.URL,
			"resume", r.ResumePath,
			"cover_letter", r.CoverLetterPath,
		)
	}
	return nil
}
