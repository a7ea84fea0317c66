package game

import (
	"github.com/tmorland/statecraft/internal/entropy"
	"github.com/tmorland/statecraft/internal/worldstate"
)

// NextEventPolicy decides whether a processed decision is followed by a
// freshly generated event.
type NextEventPolicy func(world *worldstate.Store) bool

// AlwaysNext generates a new event after every decision. This is the
// default policy.
func AlwaysNext(*worldstate.Store) bool {
	return true
}

// difficultyMultipliers scale the weighted next-event chance.
var difficultyMultipliers = map[string]float64{
	"easy":      0.7,
	"normal":    0.85,
	"hard":      1.0,
	"nightmare": 1.15,
}

// WeightedNext is the alternate strategy: a base chance raised by critical
// parameters and instability, scaled by difficulty, capped at 65%. Not
// wired by default; kept as a pluggable policy.
func WeightedNext(rng *entropy.Client, difficulty string) NextEventPolicy {
	mult, ok := difficultyMultipliers[difficulty]
	if !ok {
		mult = difficultyMultipliers["normal"]
	}
	return func(world *worldstate.Store) bool {
		const baseChance = 0.45
		criticalBonus := float64(len(world.CriticalParameters())) * 0.08
		stabilityPenalty := (100 - world.StabilityScore()) * 0.0015

		chance := (baseChance + criticalBonus + stabilityPenalty) * mult
		if chance > 0.65 {
			chance = 0.65
		}
		return entropy.Float(rng) < chance
	}
}
