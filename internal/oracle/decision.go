package oracle

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmorland/statecraft/internal/game"
)

// catastrophicKeywords mark decisions that must receive maximum penalties
// regardless of how persuasively they are phrased.
var catastrophicKeywords = []string{
	"nuke", "nuclear strike", "atomic bomb", "icbm", "nuclear attack", "nuclear weapon",
	"invade", "attack", "bomb", "airstrike", "military assault", "declare war",
	"martial law", "suspend constitution", "cancel elections", "military coup",
	"shoot protesters", "massacre", "genocide", "mass arrests", "kill civilians",
	"print unlimited money", "default on debt", "seize all assets",
}

func isCatastrophic(action string) bool {
	lower := strings.ToLower(action)
	for _, kw := range catastrophicKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// neutralConsequence is the fallback when the model returns unusable JSON.
// A submitted decision always completes; it just lands softly.
func neutralConsequence() game.Consequence {
	return game.Consequence{
		Impact: game.Impact{
			ParameterChanges: map[string]int{"publicTrust": -2},
			PublicReaction:   "The decision has been implemented with mixed public reaction.",
			Summary:          "The decision faced implementation challenges and mixed results.",
		},
	}
}

// EvaluateDecision asks the model to judge a presidential decision and
// produce parameter deltas, narrative text, and cascade suggestions.
// Transport failures propagate; malformed output degrades to a neutral
// consequence.
func (o *Oracle) EvaluateDecision(dec game.Decision, ev game.Event, world map[string]int, advice []game.AdvisorMessage) (game.Consequence, error) {
	var b strings.Builder
	b.WriteString("The President has just made a critical decision in a high-stakes situation. Evaluate the full impact and consequences.\n\n")

	fmt.Fprintf(&b, "PRESIDENTIAL DECISION:\nAction: %s\n", dec.Action)
	reasoning := dec.Reasoning
	if reasoning == "" {
		reasoning = "No reasoning provided"
	}
	fmt.Fprintf(&b, "Reasoning: %s\n", reasoning)

	if len(advice) > 0 {
		b.WriteString("\nADVISOR RECOMMENDATIONS RECEIVED:\n")
		for _, msg := range advice {
			fmt.Fprintf(&b, "%s: %q\n", strings.ReplaceAll(msg.AdvisorID, "_", " "), msg.Content)
		}
		b.WriteString("\nNote: Evaluate whether the President's decision aligns with, contradicts, or ignores advisor input.\n")
	}

	if isCatastrophic(dec.Action) {
		b.WriteString(`
CATASTROPHIC DECISION DETECTED
This decision involves extremely dangerous actions that would have devastating consequences:
- ALL major parameters should drop by 60-80 points
- Global reputation should approach zero
- This would likely end the presidency and damage America for decades
- International isolation and condemnation would be immediate and severe
`)
	}

	fmt.Fprintf(&b, "\nCRISIS CONTEXT:\nEvent: %s - %s\nEvent Urgency: %s\nEvent Category: %s\n",
		ev.Title, ev.Description, ev.Urgency, ev.Category)

	b.WriteString("\nCURRENT NATIONAL STATUS:\n")
	b.WriteString(formatWorld(world))

	b.WriteString(`
EVALUATION GUIDELINES:
- Distinguish PUBLIC announcements from INTERNAL government actions: internal decisions draw little public reaction until announced or leaked.
- Be brutally honest about likely failures, implementation gaps, bureaucratic resistance, and how opponents will exploit weaknesses.
- Even good decisions usually anger someone and create new problems.
- Consider international response, market effects, and long-term (6-12 month) consequences.

PARAMETER CHANGES:
- CATASTROPHIC decisions (nukes, coups, mass casualties): -50 to -80 for affected parameters
- TERRIBLE decisions (constitutional violations, major scandals): -30 to -60
- BAD decisions (policy failures, gaffes): -10 to -30
- MEDIOCRE decisions (half-measures, delays): -5 to -15 with mixed small positives
- GOOD decisions: +5 to +20, often with offsetting negatives elsewhere
- GREAT decisions (rare): +15 to +30, still with realistic downsides

Respond ONLY with a valid JSON object:
{
  "impact": {
    "parameterChanges": {"parameterName": integerValue},
    "publicReaction": "Detailed reaction: media response, opposition statements, international reaction, market movements, affected groups",
    "summary": "EXACTLY 2 sentences maximum explaining immediate consequences."
  },
  "cascadeEvents": ["Event Title 1", "Event Title 2"]
}

All parameter values must be integers (no + signs). cascadeEvents is optional: titles of events that should surface in 2-3 turns.`)

	raw, err := o.client.Complete("", b.String(), 1400)
	if err != nil {
		return game.Consequence{}, fmt.Errorf("decision evaluation: %w", err)
	}

	var cons game.Consequence
	if err := decodeValidated(raw, consequenceSchema, &cons); err != nil {
		slog.Warn("decision evaluation output unusable, applying neutral consequence", "error", err)
		return neutralConsequence(), nil
	}
	return cons, nil
}
