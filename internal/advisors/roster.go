package advisors

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_roster.yaml
var defaultRosterYAML []byte

// DefaultRoster returns the embedded Oval Office roster.
func DefaultRoster() (*Roster, error) {
	return parseRoster(defaultRosterYAML)
}

// LoadRoster reads a roster YAML file. An empty path loads the embedded
// default.
func LoadRoster(path string) (*Roster, error) {
	if path == "" {
		return DefaultRoster()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return parseRoster(data)
}

func parseRoster(data []byte) (*Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if len(r.Advisors) == 0 {
		return nil, fmt.Errorf("roster has no advisors")
	}
	if len(r.InitialWorldState) == 0 {
		return nil, fmt.Errorf("roster has no initial world state")
	}
	seen := make(map[string]bool, len(r.Advisors))
	for _, a := range r.Advisors {
		if a.ID == "" || a.Name == "" {
			return nil, fmt.Errorf("advisor missing id or name: %+v", a)
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("duplicate advisor id %q", a.ID)
		}
		seen[a.ID] = true
		if a.Trustworthiness < 0 || a.Trustworthiness > 1 {
			return nil, fmt.Errorf("advisor %s trustworthiness %f outside [0,1]", a.ID, a.Trustworthiness)
		}
	}
	return &r, nil
}
