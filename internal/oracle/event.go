package oracle

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tmorland/statecraft/internal/entropy"
	"github.com/tmorland/statecraft/internal/game"
)

// Oracle is the production implementation of the engine's generative
// interfaces, backed by one API client and one entropy source.
type Oracle struct {
	client *Client
	rng    *entropy.Client
}

// New creates an Oracle. client must be enabled; rng may be nil.
func New(client *Client, rng *entropy.Client) *Oracle {
	return &Oracle{client: client, rng: rng}
}

// topicPools group event seeds by theme. Pools are weighted against the
// current world state before sampling.
var topicPools = map[string][]string{
	"crisis": {
		"terrorist_attack", "cyber_attack", "natural_disaster", "pandemic_outbreak",
		"military_incident", "economic_crash", "constitutional_crisis", "assassination_attempt",
		"nuclear_threat", "mass_shooting", "border_emergency", "coup_attempt",
	},
	"political": {
		"scandal_investigation", "impeachment_threat", "election_fraud_claims", "supreme_court_crisis",
		"congressional_deadlock", "state_rebellion", "cabinet_resignation", "leak_investigation",
		"corruption_charges", "partisan_violence", "voting_rights", "gerrymandering",
	},
	"international": {
		"alliance_crisis", "trade_war", "diplomatic_incident", "refugee_crisis",
		"foreign_election_interference", "embassy_attack", "sanctions_debate", "treaty_violation",
		"humanitarian_intervention", "nuclear_proliferation", "space_conflict", "arctic_dispute",
	},
	"social": {
		"racial_unrest", "religious_conflict", "protest_violence", "hate_crime_surge",
		"immigration_raid", "sanctuary_city_defiance", "abortion_ruling", "gun_violence",
		"police_brutality", "free_speech_crisis", "campus_unrest", "cultural_war",
	},
	"economic": {
		"market_crash", "unemployment_surge", "inflation_crisis", "bank_failure",
		"trade_deficit", "debt_ceiling", "tax_revolt", "corporate_scandal",
		"currency_crisis", "energy_shortage", "supply_chain_collapse", "housing_crisis",
	},
	"environmental": {
		"climate_disaster", "pollution_crisis", "species_extinction", "water_shortage",
		"toxic_spill", "nuclear_accident", "deforestation", "ocean_crisis",
		"extreme_weather", "environmental_protest", "green_energy_failure", "carbon_tax_revolt",
	},
	"technology": {
		"ai_malfunction", "social_media_crisis", "privacy_breach", "election_hacking",
		"infrastructure_hack", "deepfake_scandal", "tech_monopoly", "surveillance_program",
		"quantum_breakthrough", "space_program_failure", "genetic_controversy", "robot_uprising",
	},
}

type weightedPool struct {
	name   string
	weight float64
}

// poolWeights maps stressed world-state parameters to thematically related
// pools. Social and technology pools always carry a baseline weight so a
// healthy nation still gets varied events.
func poolWeights(world map[string]int) []weightedPool {
	low := func(key string, threshold int) bool {
		v, ok := world[key]
		return ok && v < threshold
	}

	var pools []weightedPool
	if low("publicTrust", 45) || low("domesticStability", 45) {
		pools = append(pools, weightedPool{"crisis", 0.4}, weightedPool{"political", 0.3})
	}
	if low("globalReputation", 45) || low("military", 45) {
		pools = append(pools, weightedPool{"international", 0.3})
	}
	if low("economy", 50) {
		pools = append(pools, weightedPool{"economic", 0.4})
	}
	if low("environmentalHealth", 45) {
		pools = append(pools, weightedPool{"environmental", 0.2})
	}
	pools = append(pools, weightedPool{"social", 0.2}, weightedPool{"technology", 0.15})
	return pools
}

// selectTopics samples 2-3 topic seeds from the weighted pools. A cascade
// title overrides the sampling entirely.
func (o *Oracle) selectTopics(world map[string]int, cascadeTitle string) []string {
	if cascadeTitle != "" {
		return []string{cascadeTitle}
	}

	pools := poolWeights(world)
	numTopics := 2
	if entropy.Float(o.rng) < 0.3 {
		numTopics = 3
	}

	var selected []string
	seen := make(map[string]bool)
	for i := 0; i < numTopics; i++ {
		pool := o.pickPool(pools)
		if len(pool) == 0 {
			continue
		}
		topic := pool[entropy.Intn(o.rng, len(pool))]
		if !seen[topic] {
			seen[topic] = true
			selected = append(selected, topic)
		}
	}
	return selected
}

func (o *Oracle) pickPool(pools []weightedPool) []string {
	total := 0.0
	for _, p := range pools {
		total += p.weight
	}
	r := entropy.Float(o.rng) * total
	for _, p := range pools {
		r -= p.weight
		if r <= 0 {
			return topicPools[p.name]
		}
	}
	if len(pools) == 0 {
		return nil
	}
	return topicPools[pools[0].name]
}

// stressedParameters labels parameters under 30 as CRITICAL and under 45
// as LOW, sorted by name for stable prompts.
func stressedParameters(world map[string]int) []string {
	var critical, concerning []string
	for _, key := range sortedKeys(world) {
		switch v := world[key]; {
		case v < 30:
			critical = append(critical, fmt.Sprintf("CRITICAL-%s(%d)", key, v))
		case v < 45:
			concerning = append(concerning, fmt.Sprintf("LOW-%s(%d)", key, v))
		}
	}
	return append(critical, concerning...)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatWorld(world map[string]int) string {
	var b strings.Builder
	for _, key := range sortedKeys(world) {
		fmt.Fprintf(&b, "- %s: %d/100\n", key, world[key])
	}
	return b.String()
}

type eventPayload struct {
	Title                 string   `json:"title"`
	Description           string   `json:"description"`
	Category              string   `json:"category"`
	Urgency               string   `json:"urgency"`
	PotentialConsequences []string `json:"potentialConsequences"`
	AffectedParameters    []string `json:"affectedParameters"`
}

// GenerateEvent asks the model for one crisis event shaped by the current
// world state, recent history, and an optional cascade title.
func (o *Oracle) GenerateEvent(world map[string]int, history []game.Event, biasTitle string) (game.Event, error) {
	topics := o.selectTopics(world, biasTitle)

	var recent []string
	for _, ev := range lastEvents(history, 3) {
		recent = append(recent, ev.Title)
	}

	var b strings.Builder
	b.WriteString("You are generating realistic, challenging presidential scenarios that test moral, ethical, and political decision-making. Create events that respond to current conditions and build on previous decisions.\n\n")

	if biasTitle != "" {
		fmt.Fprintf(&b, "PRIORITY CASCADE EVENT: Focus on or incorporate %q - this event is a consequence of previous presidential decisions and should now manifest.\n\n", biasTitle)
	}

	b.WriteString("SELECTED EVENT TOPICS: Choose ONE and build around it, or combine multiple:\n")
	for _, topic := range topics {
		fmt.Fprintf(&b, "- %s\n", strings.ToUpper(strings.ReplaceAll(topic, "_", " ")))
	}

	b.WriteString("\nCURRENT NATIONAL STATUS:\n")
	b.WriteString(formatWorld(world))
	fmt.Fprintf(&b, "\nStressed areas: %s\n", strings.Join(stressedParameters(world), ", "))
	fmt.Fprintf(&b, "Recent events creating ongoing tensions: %s\n", strings.Join(recent, ", "))

	b.WriteString(`
REQUIREMENTS:
1. Respond to current conditions: events must reflect the nation's stressed parameters.
2. Build on previous decisions: new events should read as consequences of past actions.
3. Force impossible choices: every option must have severe drawbacks.
4. Include time pressure, information uncertainty, and passionate advocates on multiple sides.

Respond with a JSON object:
- title: Provocative, specific event title
- description: Brief, punchy scenario (2 sentences MAX showing immediate crisis)
- category: One of [political, economic, military, social, environmental, international, civil_rights]
- urgency: One of [medium, high, critical]
- potentialConsequences: Array of 3-4 realistic, serious outcomes
- affectedParameters: Array of parameter names that will be significantly impacted

Keep the description SHORT and URGENT - no more than 2 sentences.`)

	raw, err := o.client.Complete("", b.String(), 1024)
	if err != nil {
		return game.Event{}, fmt.Errorf("event generation: %w", err)
	}

	var payload eventPayload
	if err := decodeValidated(raw, eventSchema, &payload); err != nil {
		return game.Event{}, fmt.Errorf("event generation: %w", err)
	}

	return game.Event{
		ID:                    eventID(o.rng),
		Title:                 payload.Title,
		Description:           payload.Description,
		Category:              payload.Category,
		Urgency:               payload.Urgency,
		PotentialConsequences: payload.PotentialConsequences,
		AffectedParameters:    payload.AffectedParameters,
		Timestamp:             time.Now(),
	}, nil
}

func lastEvents(history []game.Event, n int) []game.Event {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func eventID(rng *entropy.Client) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("event_%d_", time.Now().UnixMilli()))
	for i := 0; i < 9; i++ {
		b.WriteByte(idAlphabet[entropy.Intn(rng, len(idAlphabet))])
	}
	return b.String()
}
