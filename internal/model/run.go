package model

import "time"

// RunSummary is the outcome of one pipeline run, persisted to the run
// history database and reported by notifiers.
type RunSummary struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Fetched    int    // postings returned by the boards after merge/dedupe
	Eligible   int    // postings that passed the filter
	New        int    // eligible postings not seen in any earlier run
	Succeeded  int    // jobs committed to the tracking log this run
	Failed     int    // jobs that errored and will retry next run
	Error      string // fatal run error, empty on success

	// FailedByStage breaks Failed down by the stage that errored, keyed by
	// the Stage* constants (see FailureStage). Nil when nothing failed.
	FailedByStage map[string]int
}

// Duration is the wall time of the run.
func (s RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
