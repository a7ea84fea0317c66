package oracle

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tmorland/statecraft/internal/advisors"
	"github.com/tmorland/statecraft/internal/game"
)

type advisorPayload struct {
	Content          string  `json:"content"`
	Confidence       float64 `json:"confidence"`
	HiddenMotivation string  `json:"hiddenMotivation"`
}

func worldStatusLine(world map[string]int) string {
	var parts []string
	for _, key := range sortedKeys(world) {
		v := world[key]
		status := "CRITICAL"
		switch {
		case v > 70:
			status = "STRONG"
		case v > 50:
			status = "STABLE"
		case v > 30:
			status = "WEAK"
		}
		parts = append(parts, fmt.Sprintf("%s: %d (%s)", key, v, status))
	}
	return strings.Join(parts, "\n")
}

func advisorIdentity(adv advisors.Advisor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your background: %s\n", adv.Personality)
	fmt.Fprintf(&b, "Your expertise: %s\n", strings.Join(adv.Expertise, ", "))
	if len(adv.Interests) > 0 {
		fmt.Fprintf(&b, "Your core interests: %s\n", strings.Join(adv.Interests, ", "))
	}
	fmt.Fprintf(&b, "Your trustworthiness: %.0f%%\n", adv.Trustworthiness*100)
	if adv.SecretAgenda != "" {
		fmt.Fprintf(&b, "Your hidden agenda: %s\n", adv.SecretAgenda)
	}
	return b.String()
}

// Respond generates an advisor's initial take on an event. exclude lists
// the advisor's own recent responses; the model is told not to repeat them.
func (o *Oracle) Respond(adv advisors.Advisor, ev game.Event, world map[string]int, exclude []string) (game.AdvisorMessage, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, %s to the President. A crisis requires immediate action.\n\n", adv.Name, adv.Role)
	b.WriteString("UNIQUE ADVISOR CONTEXT:\n")
	b.WriteString(advisorIdentity(adv))

	fmt.Fprintf(&b, "\nCRISIS:\n%s\nDetails: %s\nCategory: %s\n", ev.Title, ev.Description, ev.Category)

	b.WriteString("\nCURRENT WORLD STATE:\n")
	b.WriteString(worldStatusLine(world))
	b.WriteString("\n")

	if len(exclude) > 0 {
		b.WriteString("\nYOUR RECENT RESPONSES (DO NOT REPEAT THESE):\n")
		for i, r := range exclude {
			fmt.Fprintf(&b, "%d. %q\n", i+1, r)
		}
	}

	expertise := "your field"
	if len(adv.Expertise) > 0 {
		expertise = adv.Expertise[0]
	}
	fmt.Fprintf(&b, `
SPEAKING REQUIREMENTS:
- Maximum 2 sentences, each under 15 words
- Focus on YOUR specific expertise: %s
- Reference the SPECIFIC event details, not generic advice
- Use your distinct personality voice strongly
- Give ACTIONABLE advice from your role's perspective

Respond with JSON:
- content: Your unique, specific advice (2 sentences max, under 15 words each)
- confidence: 0-1
`, expertise)
	if adv.Trustworthiness < 0.7 {
		b.WriteString("- hiddenMotivation: Your real agenda for this specific situation\n")
	}

	raw, err := o.client.Complete("", b.String(), 400)
	if err != nil {
		return game.AdvisorMessage{}, fmt.Errorf("advisor %s response: %w", adv.ID, err)
	}
	var payload advisorPayload
	if err := decodeValidated(raw, advisorSchema, &payload); err != nil {
		return game.AdvisorMessage{}, fmt.Errorf("advisor %s response: %w", adv.ID, err)
	}

	return game.AdvisorMessage{
		ID:               uuid.NewString(),
		AdvisorID:        adv.ID,
		EventID:          ev.ID,
		Content:          payload.Content,
		HiddenMotivation: payload.HiddenMotivation,
		Confidence:       payload.Confidence,
		Timestamp:        time.Now(),
	}, nil
}

// React generates an advisor's one-line reaction to a processed decision.
func (o *Oracle) React(adv advisors.Advisor, dec game.Decision, ev game.Event, cons game.Consequence, world map[string]int) (game.AdvisorMessage, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, %s. The President just made a decision on the crisis. React to what happened.\n\n", adv.Name, adv.Role)
	fmt.Fprintf(&b, "Your personality: %s\n", adv.Personality)
	if adv.SecretAgenda != "" {
		fmt.Fprintf(&b, "Your agenda: %s\n", adv.SecretAgenda)
	}

	fmt.Fprintf(&b, "\nTHE DECISION:\nAction: %s\n", dec.Action)
	if dec.Reasoning != "" {
		fmt.Fprintf(&b, "Reasoning: %s\n", dec.Reasoning)
	}
	fmt.Fprintf(&b, "\nWHAT HAPPENED:\nEvent: %s\nConsequence: %s\n", ev.Title, cons.Impact.PublicReaction)

	b.WriteString("\nCurrent situation:\n")
	b.WriteString(worldStatusLine(world))

	b.WriteString(`

React to this decision in character. Keep it SHORT - just your quick reaction, 1 sentence max.

Respond with JSON:
- content: Your brief reaction (1 sentence)
- confidence: 0-1`)

	raw, err := o.client.Complete("", b.String(), 300)
	if err != nil {
		return game.AdvisorMessage{}, fmt.Errorf("advisor %s reaction: %w", adv.ID, err)
	}
	var payload advisorPayload
	if err := decodeValidated(raw, advisorSchema, &payload); err != nil {
		return game.AdvisorMessage{}, fmt.Errorf("advisor %s reaction: %w", adv.ID, err)
	}

	return game.AdvisorMessage{
		ID:         uuid.NewString(),
		AdvisorID:  adv.ID,
		EventID:    ev.ID,
		Content:    payload.Content,
		Confidence: payload.Confidence,
		IsReaction: true,
		Timestamp:  time.Now(),
	}, nil
}

// FollowUp answers a direct player question to one advisor, in character,
// with the advisor's prior statements as conversation context.
func (o *Oracle) FollowUp(adv advisors.Advisor, question string, ev game.Event, world map[string]int, prior []game.AdvisorMessage) (game.AdvisorMessage, error) {
	var history []string
	for _, m := range prior {
		history = append(history, m.Content)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, %s. You've been asked a follow-up question about the current situation.\n\n", adv.Name, adv.Role)
	fmt.Fprintf(&b, "Previous conversation:\n%s\n\n", strings.Join(history, "\n"))
	fmt.Fprintf(&b, "Current event: %s\n", ev.Title)
	fmt.Fprintf(&b, "The President's question: %q\n", question)

	b.WriteString("\nCurrent world state:\n")
	b.WriteString(worldStatusLine(world))

	b.WriteString(`

Respond in character with additional insights or clarification. If you have a secret agenda, maintain your subtle bias.

Respond with JSON:
- content: Your response to the question
- confidence: 0-1`)

	raw, err := o.client.Complete("", b.String(), 500)
	if err != nil {
		return game.AdvisorMessage{}, fmt.Errorf("advisor %s follow-up: %w", adv.ID, err)
	}
	var payload advisorPayload
	if err := decodeValidated(raw, advisorSchema, &payload); err != nil {
		return game.AdvisorMessage{}, fmt.Errorf("advisor %s follow-up: %w", adv.ID, err)
	}

	return game.AdvisorMessage{
		ID:         uuid.NewString(),
		AdvisorID:  adv.ID,
		EventID:    ev.ID,
		Content:    payload.Content,
		Confidence: payload.Confidence,
		Timestamp:  time.Now(),
	}, nil
}
