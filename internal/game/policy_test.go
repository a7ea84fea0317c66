package game

import (
	"testing"

	"github.com/tmorland/statecraft/internal/worldstate"
)

func TestAlwaysNext(t *testing.T) {
	w := worldstate.New(map[string]int{"economy": 50})
	for i := 0; i < 5; i++ {
		if !AlwaysNext(w) {
			t.Fatal("AlwaysNext returned false")
		}
	}
}

func TestWeightedNextFrequencyInRange(t *testing.T) {
	// Flat healthy state: stability 100, no criticals. Expected chance is
	// 0.45 * 0.85 = 0.3825 on normal difficulty.
	w := worldstate.New(map[string]int{
		"economy":     70,
		"publicTrust": 70,
		"military":    70,
	})
	policy := WeightedNext(nil, "normal")

	const trials = 5000
	hits := 0
	for i := 0; i < trials; i++ {
		if policy(w) {
			hits++
		}
	}
	freq := float64(hits) / trials
	if freq < 0.33 || freq > 0.44 {
		t.Errorf("next-event frequency = %.3f, want near 0.3825", freq)
	}
}

func TestWeightedNextRisesWithCrisis(t *testing.T) {
	// Two critical parameters and wild spread push the chance to the cap.
	crisis := worldstate.New(map[string]int{
		"economy":     5,
		"publicTrust": 10,
		"military":    95,
	})
	policy := WeightedNext(nil, "nightmare")

	const trials = 5000
	hits := 0
	for i := 0; i < trials; i++ {
		if policy(crisis) {
			hits++
		}
	}
	freq := float64(hits) / trials
	if freq < 0.60 || freq > 0.70 {
		t.Errorf("crisis next-event frequency = %.3f, want near the 0.65 cap", freq)
	}
}

func TestWeightedNextUnknownDifficultyDefaultsToNormal(t *testing.T) {
	w := worldstate.New(map[string]int{"economy": 70, "publicTrust": 70})
	policy := WeightedNext(nil, "bananas")

	const trials = 4000
	hits := 0
	for i := 0; i < trials; i++ {
		if policy(w) {
			hits++
		}
	}
	freq := float64(hits) / trials
	if freq < 0.32 || freq > 0.45 {
		t.Errorf("frequency = %.3f, want the normal-difficulty rate near 0.3825", freq)
	}
}
