package cascade

import (
	"testing"
)

func TestSchedule_DelayWithinWindow(t *testing.T) {
	s := NewScheduler(nil)

	// Delays are drawn from a non-seeded source; assert the window, not
	// the sequence.
	for i := 0; i < 200; i++ {
		target := s.Schedule("media_firestorm", 10)
		if target < 12 || target > 16 {
			t.Fatalf("trigger turn = %d, want within [12,16]", target)
		}
	}
}

func TestDrainDue_RemovesExactlyDueEntries(t *testing.T) {
	s := NewScheduler(nil)
	s.pending = []Pending{
		{Title: "a", TriggersAtTurn: 3},
		{Title: "b", TriggersAtTurn: 5},
		{Title: "c", TriggersAtTurn: 4},
		{Title: "d", TriggersAtTurn: 9},
	}

	due := s.DrainDue(5)
	if len(due) != 3 {
		t.Fatalf("drained %d entries, want 3", len(due))
	}

	rest := s.Pending()
	if len(rest) != 1 || rest[0].Title != "d" || rest[0].TriggersAtTurn != 9 {
		t.Fatalf("remaining = %v, want only d@9 with original trigger turn", rest)
	}

	// Second drain at the same turn finds nothing.
	if again := s.DrainDue(5); len(again) != 0 {
		t.Fatalf("second drain returned %v, want empty", again)
	}
}

func TestPeekFirstDueTitle_DoesNotRemove(t *testing.T) {
	s := NewScheduler(nil)
	s.pending = []Pending{
		{Title: "late", TriggersAtTurn: 8},
		{Title: "due", TriggersAtTurn: 2},
	}

	title, ok := s.PeekFirstDueTitle(3)
	if !ok || title != "due" {
		t.Fatalf("peek = %q/%v, want due/true", title, ok)
	}
	if len(s.Pending()) != 2 {
		t.Fatal("peek removed an entry")
	}

	if _, ok := s.PeekFirstDueTitle(1); ok {
		t.Fatal("peek found a due entry before any trigger turn")
	}
}

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"Terrorist Attack":    "terrorist_attack",
		"  Economic   Crash ": "economic_crash",
		"cyber_attack":        "cyber_attack",
	}
	for in, want := range cases {
		if got := NormalizeKey(in); got != want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatrixCascades_OnlyKnownFollowUps(t *testing.T) {
	known := map[string]bool{}
	for follow := range probabilityMatrix["terrorist_attack"] {
		known[follow] = true
	}

	// High impact raises per-entry probability but output must stay
	// within the matrix row (fallback never fires once the row hits).
	for i := 0; i < 100; i++ {
		got := MatrixCascades(nil, "Terrorist Attack", 120)
		for _, title := range got {
			if !known[title] {
				t.Fatalf("unexpected cascade %q for terrorist_attack", title)
			}
		}
	}
}

func TestMatrixCascades_UnknownLowImpactYieldsNothing(t *testing.T) {
	for i := 0; i < 50; i++ {
		if got := MatrixCascades(nil, "Routine Budget Meeting", 40); len(got) != 0 {
			t.Fatalf("low-impact unknown event produced cascades: %v", got)
		}
	}
}

func TestMatrixCascades_FallbackOnlyFromPool(t *testing.T) {
	pool := map[string]bool{}
	for _, title := range fallbackPool {
		pool[title] = true
	}

	sawFallback := false
	for i := 0; i < 2000; i++ {
		got := MatrixCascades(nil, "Unmapped Catastrophe", 300)
		if len(got) > 1 {
			t.Fatalf("fallback pass produced %d titles, want at most 1", len(got))
		}
		if len(got) == 1 {
			sawFallback = true
			if !pool[got[0]] {
				t.Fatalf("fallback title %q not in generic pool", got[0])
			}
		}
	}
	// 15% chance over 2000 trials: absence would be astronomically unlikely.
	if !sawFallback {
		t.Error("fallback cascade never fired across 2000 high-impact trials")
	}
}
