package oracle

import (
	"strings"
	"testing"

	"github.com/tmorland/statecraft/internal/game"
)

func TestExtractJSONHandlesCodeFences(t *testing.T) {
	raw := "```json\n{\"title\": \"Border Standoff\"}\n```"
	got, err := extractJSON(raw)
	if err != nil {
		t.Fatalf("extractJSON: %v", err)
	}
	if got != `{"title": "Border Standoff"}` {
		t.Errorf("got %q", got)
	}
}

func TestExtractJSONSlicesBraceWindow(t *testing.T) {
	raw := `Here is my analysis of the situation:
{"impact": {"parameterChanges": {"economy": -10}}}
Let me know if you need more detail.`
	got, err := extractJSON(raw)
	if err != nil {
		t.Fatalf("extractJSON: %v", err)
	}
	if !strings.HasPrefix(got, "{") || !strings.HasSuffix(got, "}") {
		t.Errorf("not a brace window: %q", got)
	}
	if strings.Contains(got, "analysis") {
		t.Errorf("prose leaked into JSON: %q", got)
	}
}

func TestExtractJSONStripsPlusSignsAndTrailingCommas(t *testing.T) {
	raw := `{"parameterChanges": {"economy": +12, "publicTrust": -5,}, "list": ["a", "b",],}`
	got, err := extractJSON(raw)
	if err != nil {
		t.Fatalf("extractJSON: %v", err)
	}
	if strings.Contains(got, "+") {
		t.Errorf("plus sign survived: %q", got)
	}
	if strings.Contains(got, ",}") || strings.Contains(got, ",]") {
		t.Errorf("trailing comma survived: %q", got)
	}
}

func TestExtractJSONNoObject(t *testing.T) {
	if _, err := extractJSON("I cannot answer that."); err == nil {
		t.Fatal("expected an error for output without JSON")
	}
}

func TestDecodeValidatedEvent(t *testing.T) {
	raw := "```json\n" + `{
	  "title": "Grid Collapse in Texas",
	  "description": "Rolling blackouts hit 14 million homes. The governor blames federal policy.",
	  "category": "economic",
	  "urgency": "critical",
	  "potentialConsequences": ["deaths from heat exposure", "state-federal standoff"],
	  "affectedParameters": ["economy", "domesticStability"]
	}` + "\n```"

	var payload eventPayload
	if err := decodeValidated(raw, eventSchema, &payload); err != nil {
		t.Fatalf("decodeValidated: %v", err)
	}
	if payload.Title != "Grid Collapse in Texas" {
		t.Errorf("title = %q", payload.Title)
	}
	if payload.Urgency != "critical" {
		t.Errorf("urgency = %q", payload.Urgency)
	}
}

func TestDecodeValidatedRejectsBadUrgency(t *testing.T) {
	raw := `{"title": "X", "description": "Y", "category": "political", "urgency": "apocalyptic"}`
	var payload eventPayload
	if err := decodeValidated(raw, eventSchema, &payload); err == nil {
		t.Fatal("expected a validation error for unknown urgency")
	}
}

func TestDecodeValidatedConsequence(t *testing.T) {
	raw := `{
	  "impact": {
	    "parameterChanges": {"economy": -12, "publicTrust": +3,},
	    "publicReaction": "Markets slide while the base cheers.",
	    "summary": "Short-term pain. Long-term uncertainty."
	  },
	  "cascadeEvents": ["Market Panic"]
	}`
	var cons game.Consequence
	if err := decodeValidated(raw, consequenceSchema, &cons); err != nil {
		t.Fatalf("decodeValidated: %v", err)
	}
	if cons.Impact.ParameterChanges["economy"] != -12 {
		t.Errorf("economy delta = %d, want -12", cons.Impact.ParameterChanges["economy"])
	}
	if cons.Impact.ParameterChanges["publicTrust"] != 3 {
		t.Errorf("publicTrust delta = %d, want 3", cons.Impact.ParameterChanges["publicTrust"])
	}
	if len(cons.CascadeEvents) != 1 || cons.CascadeEvents[0] != "Market Panic" {
		t.Errorf("cascadeEvents = %v", cons.CascadeEvents)
	}
}

func TestDecodeValidatedRejectsFractionalDelta(t *testing.T) {
	raw := `{"impact": {"parameterChanges": {"economy": -1.5}}}`
	var cons game.Consequence
	if err := decodeValidated(raw, consequenceSchema, &cons); err == nil {
		t.Fatal("expected a validation error for a fractional parameter delta")
	}
}

func TestIsCatastrophic(t *testing.T) {
	cases := []struct {
		action string
		want   bool
	}{
		{"Launch a nuclear strike on the rebel compound", true},
		{"Declare martial law in three states", true},
		{"NUKE the hurricane", true},
		{"Hold a press conference and call for calm", false},
		{"Increase funding for border patrol", false},
	}
	for _, tc := range cases {
		if got := isCatastrophic(tc.action); got != tc.want {
			t.Errorf("isCatastrophic(%q) = %v, want %v", tc.action, got, tc.want)
		}
	}
}

func TestNeutralConsequence(t *testing.T) {
	cons := neutralConsequence()
	if got := cons.Impact.ParameterChanges["publicTrust"]; got != -2 {
		t.Errorf("publicTrust delta = %d, want -2", got)
	}
	if len(cons.CascadeEvents) != 0 {
		t.Errorf("neutral consequence suggested cascades: %v", cons.CascadeEvents)
	}
}

func TestSelectTopicsCascadeOverride(t *testing.T) {
	o := New(nil, nil)
	topics := o.selectTopics(map[string]int{"economy": 50}, "Market Panic")
	if len(topics) != 1 || topics[0] != "Market Panic" {
		t.Errorf("topics = %v, want only the cascade title", topics)
	}
}

func TestSelectTopicsSamplesFromPools(t *testing.T) {
	o := New(nil, nil)
	world := map[string]int{
		"economy":     30,
		"publicTrust": 25,
	}

	all := make(map[string]bool)
	for _, pool := range topicPools {
		for _, topic := range pool {
			all[topic] = true
		}
	}

	for i := 0; i < 100; i++ {
		topics := o.selectTopics(world, "")
		if len(topics) < 1 || len(topics) > 3 {
			t.Fatalf("got %d topics, want 1-3", len(topics))
		}
		for _, topic := range topics {
			if !all[topic] {
				t.Fatalf("topic %q not from any pool", topic)
			}
		}
	}
}

func TestStressedParameters(t *testing.T) {
	world := map[string]int{
		"economy":     25,
		"publicTrust": 40,
		"military":    80,
	}
	got := stressedParameters(world)
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 entries", got)
	}
	if got[0] != "CRITICAL-economy(25)" {
		t.Errorf("first = %q", got[0])
	}
	if got[1] != "LOW-publicTrust(40)" {
		t.Errorf("second = %q", got[1])
	}
}

func TestEventIDFormat(t *testing.T) {
	id := eventID(nil)
	if !strings.HasPrefix(id, "event_") {
		t.Errorf("id %q missing prefix", id)
	}
	if len(strings.Split(id, "_")) != 3 {
		t.Errorf("id %q should have three underscore-separated parts", id)
	}
}
