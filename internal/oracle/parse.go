package oracle

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Model output cleanup: code fences, explicit plus signs on numbers, and
// trailing commas all appear in practice and all break encoding/json.
var (
	fenceOpenRe  = regexp.MustCompile("```json\\s*")
	fenceCloseRe = regexp.MustCompile("```\\s*$")
	plusNumRe    = regexp.MustCompile(`\+(\d+)`)
	trailObjRe   = regexp.MustCompile(`,\s*}`)
	trailArrRe   = regexp.MustCompile(`,\s*]`)
)

// extractJSON slices the first top-level JSON object out of model output
// and normalizes it.
func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(s, "")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in output")
	}
	s = s[start : end+1]

	s = plusNumRe.ReplaceAllString(s, "$1")
	s = trailObjRe.ReplaceAllString(s, "}")
	s = trailArrRe.ReplaceAllString(s, "]")
	return s, nil
}

// decodeValidated extracts a JSON object from raw model output, checks it
// against schema, and unmarshals it into out.
func decodeValidated(raw string, schema *jsonschema.Schema, out any) error {
	text, err := extractJSON(raw)
	if err != nil {
		return err
	}

	var generic any
	if err := json.Unmarshal([]byte(text), &generic); err != nil {
		return fmt.Errorf("parse output: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		return fmt.Errorf("validate output: %w", err)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decode output: %w", err)
	}
	return nil
}
