package cascade

import (
	"strings"

	"github.com/tmorland/statecraft/internal/entropy"
)

// probabilityMatrix maps a normalized event title to the follow-up crises it
// tends to spawn, with base trigger probabilities. Keys are NormalizeKey
// form: lowercase, spaces replaced by underscores.
var probabilityMatrix = map[string]map[string]float64{
	// Crisis events often cascade into multiple areas.
	"terrorist_attack": {
		"surveillance_expansion":   0.4,
		"civil_rights_restriction": 0.3,
		"military_mobilization":    0.25,
		"immigration_crackdown":    0.2,
	},
	"economic_crash": {
		"unemployment_crisis":       0.5,
		"social_unrest":             0.25,
		"international_instability": 0.15,
		"political_crisis":          0.2,
	},
	"cyber_attack": {
		"infrastructure_failure": 0.3,
		"privacy_legislation":    0.25,
		"international_incident": 0.2,
		"military_response":      0.15,
	},
	"natural_disaster": {
		"economic_impact":         0.35,
		"federal_response_crisis": 0.25,
		"climate_policy_debate":   0.2,
		"state_federal_conflict":  0.15,
	},
	// Political events cascade into other political areas.
	"scandal_investigation": {
		"impeachment_threat":    0.15,
		"cabinet_resignation":   0.25,
		"congressional_hearing": 0.3,
		"media_war":             0.35,
	},
	"state_rebellion": {
		"constitutional_crisis":      0.25,
		"federal_enforcement":        0.3,
		"other_state_defiance":       0.2,
		"supreme_court_intervention": 0.15,
	},
	// Social events cascade into more social unrest.
	"racial_unrest": {
		"police_reform_demand": 0.35,
		"counter_protest":      0.3,
		"federal_intervention": 0.2,
		"economic_boycott":     0.15,
	},
	"immigration_raid": {
		"sanctuary_city_response": 0.3,
		"international_criticism": 0.2,
		"congressional_action":    0.25,
		"protest_movement":        0.35,
	},
}

// fallbackPool holds generic follow-ups rolled when a high-impact decision
// would otherwise be consequence-free.
var fallbackPool = []string{
	"media_firestorm", "congressional_investigation", "public_protest",
	"international_condemnation", "economic_aftershock", "political_fallout",
}

const (
	fallbackImpactThreshold = 150
	fallbackChance          = 0.15
)

// NormalizeKey converts an event title to its matrix lookup key:
// lowercase with runs of whitespace collapsed to single underscores.
func NormalizeKey(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), "_")
}

// MatrixCascades derives candidate cascade titles for an event from the
// static probability matrix, adjusting each entry's chance by the decision's
// total impact before rolling. When the table pass yields nothing and the
// impact is high, one generic fallback title gets a low-probability roll so
// severe decisions are not silently absorbed.
func MatrixCascades(rng *entropy.Client, eventTitle string, totalImpact int) []string {
	var out []string

	if possible, ok := probabilityMatrix[NormalizeKey(eventTitle)]; ok {
		for title, base := range possible {
			p := base
			switch {
			case totalImpact > 150:
				p *= 1.3
			case totalImpact > 100:
				p *= 1.1
			case totalImpact < 50:
				p *= 0.7
			}
			if entropy.Float(rng) < p {
				out = append(out, title)
			}
		}
	}

	if len(out) == 0 && totalImpact > fallbackImpactThreshold {
		if entropy.Float(rng) < fallbackChance {
			out = append(out, fallbackPool[entropy.Intn(rng, len(fallbackPool))])
		}
	}

	return out
}
