// Package advisors holds the static advisor roster and the recency-biased
// selection policy. The roster is configuration: read-only after load,
// never session-scoped.
package advisors

import (
	"strings"
)

// Advisor is one persona on the roster.
type Advisor struct {
	ID              string   `yaml:"id" json:"id"`
	Name            string   `yaml:"name" json:"name"`
	Role            string   `yaml:"role" json:"role"`
	Personality     string   `yaml:"personality" json:"personality,omitempty"`
	Expertise       []string `yaml:"expertise" json:"expertise"`
	Interests       []string `yaml:"interests" json:"interests,omitempty"`
	SecretAgenda    string   `yaml:"secretAgenda" json:"-"`
	Trustworthiness float64  `yaml:"trustworthiness" json:"trustworthiness"`
	VoiceProfile    string   `yaml:"voiceProfile" json:"-"`
}

// Roster is the full game configuration: mode, difficulty, starting world
// state, event categories and the advisor list.
type Roster struct {
	Mode              string         `yaml:"mode"`
	Difficulty        string         `yaml:"difficulty"`
	InitialWorldState map[string]int `yaml:"initialWorldState"`
	EventCategories   []string       `yaml:"eventCategories"`
	Advisors          []Advisor      `yaml:"advisors"`
}

// ByID returns the advisor with the given id.
func (r *Roster) ByID(id string) (Advisor, bool) {
	for _, a := range r.Advisors {
		if a.ID == id {
			return a, true
		}
	}
	return Advisor{}, false
}

// ByExpertise returns advisors whose expertise mentions the given topic.
func (r *Roster) ByExpertise(topic string) []Advisor {
	topic = strings.ToLower(topic)
	var out []Advisor
	for _, a := range r.Advisors {
		for _, exp := range a.Expertise {
			if strings.Contains(strings.ToLower(exp), topic) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// Trustworthy returns advisors at or above the given trustworthiness.
func (r *Roster) Trustworthy(min float64) []Advisor {
	var out []Advisor
	for _, a := range r.Advisors {
		if a.Trustworthiness >= min {
			out = append(out, a)
		}
	}
	return out
}

// Problematic returns advisors carrying a secret agenda or with
// trustworthiness under 0.7, useful for post-game analysis.
func (r *Roster) Problematic() []Advisor {
	var out []Advisor
	for _, a := range r.Advisors {
		if a.SecretAgenda != "" || a.Trustworthiness < 0.7 {
			out = append(out, a)
		}
	}
	return out
}
