package advisors

import (
	"github.com/tmorland/statecraft/internal/entropy"
)

const (
	// recencyWindow is how many of the latest picks count as "recently
	// selected" when partitioning the roster.
	recencyWindow = 6
	// trackerCap bounds the recency tracker.
	trackerCap = 12
)

// Tracker remembers recently selected advisor ids so consecutive rounds
// rotate through the roster instead of re-picking the same voices.
type Tracker struct {
	recent []string
}

// Recent returns the last n selected ids, oldest first.
func (t *Tracker) Recent(n int) []string {
	if n > len(t.recent) {
		n = len(t.recent)
	}
	out := make([]string, n)
	copy(out, t.recent[len(t.recent)-n:])
	return out
}

// Reset clears the tracker.
func (t *Tracker) Reset() {
	t.recent = nil
}

func (t *Tracker) record(ids []string) {
	t.recent = append(t.recent, ids...)
	if len(t.recent) > trackerCap {
		t.recent = t.recent[len(t.recent)-trackerCap:]
	}
}

// Select picks count distinct advisors from the roster, preferring those
// absent from the tracker's recency window. If fewer than count advisors
// are outside the window, recently used ones fill the gap. The eligible
// pool is shuffled with a non-seeded uniform permutation, so selection is a
// distribution property, not a reproducible sequence. All picks are
// recorded in the tracker.
func Select(rng *entropy.Client, roster []Advisor, count int, t *Tracker) []Advisor {
	if len(roster) <= count {
		out := make([]Advisor, len(roster))
		copy(out, roster)
		return out
	}

	recentlyUsed := make(map[string]bool)
	for _, id := range t.Recent(recencyWindow) {
		recentlyUsed[id] = true
	}

	var fresh, recent []Advisor
	for _, a := range roster {
		if recentlyUsed[a.ID] {
			recent = append(recent, a)
		} else {
			fresh = append(fresh, a)
		}
	}

	pool := fresh
	if len(fresh) < count {
		pool = append(append([]Advisor{}, fresh...), recent...)
	}

	shuffled := make([]Advisor, len(pool))
	copy(shuffled, pool)
	entropy.Shuffle(rng, len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	selected := shuffled[:count]
	ids := make([]string, len(selected))
	for i, a := range selected {
		ids[i] = a.ID
	}
	t.record(ids)

	return selected
}
