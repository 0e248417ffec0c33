package dedup

import "testing"

func TestTracker(t *testing.T) {
	tr := NewTracker([]string{"aaa", "bbb"})

	if tr.IsNew("aaa") {
		t.Error("seeded key reported as new")
	}
	if !tr.IsNew("ccc") {
		t.Error("unknown key reported as processed")
	}

	tr.MarkProcessed("ccc")
	if tr.IsNew("ccc") {
		t.Error("marked key still reported as new")
	}
	if tr.Len() != 3 {
		t.Errorf("Len = %d, want 3", tr.Len())
	}

	// Marking twice is a no-op.
	tr.MarkProcessed("ccc")
	if tr.Len() != 3 {
		t.Errorf("Len after duplicate mark = %d, want 3", tr.Len())
	}
}
