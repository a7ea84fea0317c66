package game

import (
	"regexp"
	"strings"

	"github.com/tmorland/statecraft/internal/advisors"
)

// IntentParser rewrites a free-text action when it expresses agreement with
// a named advisor. Isolated behind an interface so the regex implementation
// can be swapped for a classifier without touching orchestration.
type IntentParser interface {
	// EffectiveAction returns the action to evaluate. resolve maps an
	// advisor id to that advisor's standing recommendation, if any.
	EffectiveAction(action string, resolve func(advisorID string) (string, bool)) string
}

// agreementPatterns detect "adopt that advisor's recommendation" phrasing.
// Each pattern captures the advisor reference in group 1.
var agreementPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)I agree with (.*?)(?:\s*\.|\s*,|\s*$|\s+(?:on|about|that))`),
	regexp.MustCompile(`(?i)Agree with (.*?)(?:\s*\.|\s*,|\s*$|\s+(?:on|about|that))`),
	regexp.MustCompile(`(?i)Follow (.*?)(?:'s|s)?\s*(?:advice|recommendation|suggestion)(?:\s|$|\.)`),
	regexp.MustCompile(`(?i)Do what (.*?) (?:said|suggests?|recommends?)(?:\s|$|\.)`),
	regexp.MustCompile(`(?i)Let's do what (.*?) (?:said|suggests?|recommends?)(?:\s|$|\.)`),
	regexp.MustCompile(`(?i)Go with (.*?)(?:'s|s)?\s*(?:plan|idea|advice|recommendation)?(?:\s|$|\.)`),
}

// AgreementParser is the regex-based IntentParser. Advisor name aliases are
// derived from the roster: the full lowercase name, each name token, and
// both halves of hyphenated surnames. Aliases shared by two advisors are
// dropped as ambiguous.
type AgreementParser struct {
	aliases map[string]string // lowercase alias to advisor id
}

// NewAgreementParser builds the alias table from a roster.
func NewAgreementParser(roster *advisors.Roster) *AgreementParser {
	aliases := make(map[string]string)
	ambiguous := make(map[string]bool)

	add := func(alias, id string) {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" {
			return
		}
		if existing, ok := aliases[alias]; ok && existing != id {
			ambiguous[alias] = true
			return
		}
		aliases[alias] = id
	}

	for _, a := range roster.Advisors {
		add(a.Name, a.ID)
		for _, token := range strings.Fields(a.Name) {
			token = strings.Trim(token, ".")
			add(token, a.ID)
			if head, tail, ok := strings.Cut(token, "-"); ok {
				add(head, a.ID)
				add(tail, a.ID)
			}
		}
	}
	for alias := range ambiguous {
		delete(aliases, alias)
	}

	return &AgreementParser{aliases: aliases}
}

// EffectiveAction substitutes the referenced advisor's recommendation for
// the action text when an agreement pattern matches and the advisor has a
// message on file. Otherwise the original action is returned unchanged.
func (p *AgreementParser) EffectiveAction(action string, resolve func(advisorID string) (string, bool)) string {
	for _, pattern := range agreementPatterns {
		m := pattern.FindStringSubmatch(action)
		if m == nil {
			continue
		}
		ref := strings.ToLower(strings.TrimSpace(m[1]))
		id, ok := p.aliases[ref]
		if !ok {
			continue
		}
		if content, ok := resolve(id); ok {
			return content
		}
	}
	return action
}
