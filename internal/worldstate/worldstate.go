// Package worldstate holds the bounded numeric vector describing national
// condition metrics. Every parameter is clamped to [0,100]; mutation happens
// only through ApplyDelta so the clamp invariant lives in one place.
package worldstate

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Known parameter names. The store is an open map: configuration may add
// parameters beyond these and they flow through every view transparently.
const (
	ParamEconomy     = "economy"
	ParamMilitary    = "military"
	ParamPublicTrust = "publicTrust"
	ParamGlobalRep   = "globalReputation"
	ParamStability   = "domesticStability"
	ParamEnvironment = "environmentalHealth"
	ParamTechnology  = "technologicalAdvancement"
)

const (
	criticalThreshold = 20
	strongThreshold   = 80
	historyCap        = 50
)

// Snapshot is a timestamped copy of the full parameter map.
type Snapshot struct {
	State     map[string]int `json:"state"`
	Timestamp time.Time      `json:"timestamp"`
}

// Parameter pairs a parameter name with its current value.
type Parameter struct {
	Name  string `json:"parameter"`
	Value int    `json:"value"`
}

// Store owns the parameter map and a capped snapshot history.
// It is not safe for concurrent use; the orchestrator serializes access.
type Store struct {
	state   map[string]int
	history []Snapshot
}

// New creates a Store from an initial parameter map and records the
// starting snapshot.
func New(initial map[string]int) *Store {
	s := &Store{state: make(map[string]int, len(initial))}
	for k, v := range initial {
		s.state[k] = clamp(v)
	}
	s.snapshot()
	return s
}

// Current returns a copy of the parameter map. Callers never see the
// internal map.
func (s *Store) Current() map[string]int {
	out := make(map[string]int, len(s.state))
	for k, v := range s.state {
		out[k] = v
	}
	return out
}

// ApplyDelta adds each delta to its parameter, clamping to [0,100].
// Keys not already present are ignored: consequence application never grows
// the state shape. Returns the updated snapshot copy.
func (s *Store) ApplyDelta(deltas map[string]int) map[string]int {
	for param, delta := range deltas {
		if _, ok := s.state[param]; ok {
			s.state[param] = clamp(s.state[param] + delta)
		}
	}
	s.snapshot()
	return s.Current()
}

// CriticalParameters returns all parameters below the critical threshold.
func (s *Store) CriticalParameters() []Parameter {
	var out []Parameter
	for k, v := range s.state {
		if v < criticalThreshold {
			out = append(out, Parameter{Name: k, Value: v})
		}
	}
	return out
}

// StrongParameters returns all parameters above the strong threshold.
func (s *Store) StrongParameters() []Parameter {
	var out []Parameter
	for k, v := range s.state {
		if v > strongThreshold {
			out = append(out, Parameter{Name: k, Value: v})
		}
	}
	return out
}

// StabilityScore is 100 minus the standard deviation of the parameter
// values, floored at zero. A perfectly flat distribution scores 100;
// spread indicates instability regardless of absolute level.
func (s *Store) StabilityScore() float64 {
	if len(s.state) == 0 {
		return 100
	}

	sum := 0
	for _, v := range s.state {
		sum += v
	}
	mean := float64(sum) / float64(len(s.state))

	variance := 0.0
	for _, v := range s.state {
		d := float64(v) - mean
		variance += d * d
	}
	variance /= float64(len(s.state))

	return math.Max(0, 100-math.Sqrt(variance))
}

// History returns a copy of the snapshot history, oldest first.
func (s *Store) History() []Snapshot {
	out := make([]Snapshot, len(s.history))
	copy(out, s.history)
	return out
}

// RevertToSnapshot restores the state from history entry i and records the
// revert as a fresh snapshot. Out-of-range indexes are ignored.
func (s *Store) RevertToSnapshot(i int) map[string]int {
	if i >= 0 && i < len(s.history) {
		restored := make(map[string]int, len(s.history[i].State))
		for k, v := range s.history[i].State {
			restored[k] = v
		}
		s.state = restored
		s.snapshot()
	}
	return s.Current()
}

// Report renders a human-readable status summary for display.
func (s *Store) Report() string {
	critical := s.CriticalParameters()
	strong := s.StrongParameters()

	var b strings.Builder
	b.WriteString("World State Report\n==================\n")
	fmt.Fprintf(&b, "Overall Stability: %.1f/100\n\n", s.StabilityScore())

	b.WriteString("Parameters:\n")
	names := make([]string, 0, len(s.state))
	for k := range s.state {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		v := s.state[name]
		var status string
		switch {
		case v < criticalThreshold:
			status = "CRITICAL"
		case v < 40:
			status = "weak"
		case v > strongThreshold:
			status = "strong"
		default:
			status = "stable"
		}
		fmt.Fprintf(&b, "  %-26s %3d/100 (%s)\n", name, v, status)
	}

	if len(critical) > 0 {
		names := make([]string, len(critical))
		for i, p := range critical {
			names[i] = p.Name
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "\nCritical areas: %s\n", strings.Join(names, ", "))
	}
	if len(strong) > 0 {
		names := make([]string, len(strong))
		for i, p := range strong {
			names[i] = p.Name
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "\nStrong areas: %s\n", strings.Join(names, ", "))
	}

	return b.String()
}

func (s *Store) snapshot() {
	s.history = append(s.history, Snapshot{
		State:     s.Current(),
		Timestamp: time.Now(),
	})
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
