package dedup

import "github.com/tbanks7/applyflow/internal/model"

// Ensure Tracker implements model.ProcessedSet.
var _ model.ProcessedSet = (*Tracker)(nil)

// Tracker holds the full set of processed job fingerprints in memory for the
// duration of a run. It is loaded once at run start from the local tracking
// log and is the single check before any per-job work begins. Append-only:
// there is no removal operation.
//
// Durability is the log itself — the pipeline appends the record first and
// marks the key here second, so a crash between the two can only cause a
// redundant local row, never a silently lost job.
type Tracker struct {
	keys map[string]struct{}
}

// NewTracker builds a tracker seeded with the given fingerprints.
func NewTracker(keys []string) *Tracker {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return &Tracker{keys: set}
}

// IsNew reports whether the fingerprint has not been processed before.
func (t *Tracker) IsNew(key string) bool {
	_, seen := t.keys[key]
	return !seen
}

// MarkProcessed adds the fingerprint to the set. Call only after the job's
// artifacts and tracking record are fully committed.
func (t *Tracker) MarkProcessed(key string) {
	t.keys[key] = struct{}{}
}

// Len returns the number of processed fingerprints.
func (t *Tracker) Len() int {
	return len(t.keys)
}
