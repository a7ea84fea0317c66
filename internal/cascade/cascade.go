// Package cascade schedules delayed follow-up events. A decision that
// triggers a cascade does not surface it immediately: the title sits in a
// queue for several turns so consequences arrive with narrative lag and
// are not obviously attributable to the decision that spawned them.
package cascade

import (
	"github.com/tmorland/statecraft/internal/entropy"
)

// Pending is a cascade title waiting for its trigger turn.
type Pending struct {
	Title          string `json:"eventTitle"`
	TriggersAtTurn int    `json:"triggersAtTurn"`
}

const (
	minDelayTurns = 2
	maxDelayTurns = 6
)

// Scheduler holds the pending cascade queue for one session.
// Not safe for concurrent use; the orchestrator serializes access.
type Scheduler struct {
	rng     *entropy.Client
	pending []Pending
}

// NewScheduler creates an empty scheduler. rng may be nil (crypto fallback).
func NewScheduler(rng *entropy.Client) *Scheduler {
	return &Scheduler{rng: rng}
}

// Schedule enqueues title with a delay drawn uniformly from
// [minDelayTurns, maxDelayTurns]. Returns the trigger turn.
func (s *Scheduler) Schedule(title string, currentTurn int) int {
	wait := minDelayTurns + entropy.Intn(s.rng, maxDelayTurns-minDelayTurns+1)
	target := currentTurn + wait
	s.pending = append(s.pending, Pending{Title: title, TriggersAtTurn: target})
	return target
}

// DrainDue removes and returns every entry with a trigger turn at or before
// currentTurn. Remaining entries keep their original trigger turns.
func (s *Scheduler) DrainDue(currentTurn int) []Pending {
	var due []Pending
	var rest []Pending
	for _, p := range s.pending {
		if p.TriggersAtTurn <= currentTurn {
			due = append(due, p)
		} else {
			rest = append(rest, p)
		}
	}
	s.pending = rest
	return due
}

// PeekFirstDueTitle returns the first due title without removing it.
// Used to bias the next event-generation call toward a pending cascade.
func (s *Scheduler) PeekFirstDueTitle(currentTurn int) (string, bool) {
	for _, p := range s.pending {
		if p.TriggersAtTurn <= currentTurn {
			return p.Title, true
		}
	}
	return "", false
}

// Pending returns a copy of the queue for session snapshots.
func (s *Scheduler) Pending() []Pending {
	out := make([]Pending, len(s.pending))
	copy(out, s.pending)
	return out
}

// Reset empties the queue.
func (s *Scheduler) Reset() {
	s.pending = nil
}
