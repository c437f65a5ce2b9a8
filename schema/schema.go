// Package schema validates oracle-authored event JSON before it enters the
// engine, and maps the external wire form (camelCase field names) onto the
// canonical snake_case event shape.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/townlet-ai/townlet/core"
)

//go:embed event.schema.json
var eventSchemaJSON string

var eventSchema = jsonschema.MustCompileString("event.schema.json", eventSchemaJSON)

// camelToSnake lists the wire fields the authority persona emits in
// camelCase; the canonical form is snake_case.
var camelToSnake = map[string]string{
	"affectedAgents": "affected_agents",
	"startTime":      "start_time",
	"fromAgent":      "from_agent",
	"toAgent":        "to_agent",
	"createdAt":      "created_at",
}

// ValidateEvent checks raw event JSON against the event schema.
func ValidateEvent(data []byte) error {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("event payload is not valid JSON: %w", err)
	}
	if err := eventSchema.Validate(doc); err != nil {
		return fmt.Errorf("event payload rejected by schema: %w", err)
	}
	return nil
}

// DecodeEvent validates and decodes raw oracle JSON into a canonical event.
// CamelCase wire fields are normalized; a malformed affected-agents value is
// coerced to an empty list by the event decoder rather than rejected.
func DecodeEvent(data []byte) (core.Event, error) {
	data = []byte(StripFences(string(data)))
	if err := ValidateEvent(data); err != nil {
		return core.Event{}, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return core.Event{}, fmt.Errorf("decode event payload: %w", err)
	}
	for camel, snake := range camelToSnake {
		if v, ok := fields[camel]; ok {
			if _, exists := fields[snake]; !exists {
				fields[snake] = v
			}
			delete(fields, camel)
		}
	}
	norm, err := json.Marshal(fields)
	if err != nil {
		return core.Event{}, fmt.Errorf("normalize event payload: %w", err)
	}
	var ev core.Event
	if err := json.Unmarshal(norm, &ev); err != nil {
		return core.Event{}, fmt.Errorf("decode event payload: %w", err)
	}
	return ev, nil
}

// StripFences removes markdown code fences around a JSON payload and trims
// narrative text outside the outermost JSON object.
func StripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}
