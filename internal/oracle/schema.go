package oracle

import "github.com/santhosh-tekuri/jsonschema/v5"

// Output contracts for the three structured oracle calls. Validation runs
// before unmarshal so a half-formed object never reaches game state.

var eventSchema = jsonschema.MustCompileString("event.schema.json", `{
  "type": "object",
  "required": ["title", "description", "category", "urgency"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "description": {"type": "string", "minLength": 1},
    "category": {"type": "string", "minLength": 1},
    "urgency": {"enum": ["low", "medium", "high", "critical"]},
    "potentialConsequences": {"type": "array", "items": {"type": "string"}},
    "affectedParameters": {"type": "array", "items": {"type": "string"}}
  }
}`)

var consequenceSchema = jsonschema.MustCompileString("consequence.schema.json", `{
  "type": "object",
  "required": ["impact"],
  "properties": {
    "impact": {
      "type": "object",
      "required": ["parameterChanges"],
      "properties": {
        "parameterChanges": {
          "type": "object",
          "additionalProperties": {"type": "integer"}
        },
        "publicReaction": {"type": "string"},
        "summary": {"type": "string"}
      }
    },
    "cascadeEvents": {"type": "array", "items": {"type": "string"}}
  }
}`)

var advisorSchema = jsonschema.MustCompileString("advisor.schema.json", `{
  "type": "object",
  "required": ["content"],
  "properties": {
    "content": {"type": "string", "minLength": 1},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "hiddenMotivation": {"type": "string"}
  }
}`)
