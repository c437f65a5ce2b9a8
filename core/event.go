package core

import "encoding/json"

// Well-known event types. Type is a free-form tag; these constants cover the
// values the engine gives special treatment.
const (
	EventPolicy        = "POLICY"
	EventDialogue      = "DIALOGUE"
	EventGift          = "GIFT"
	EventCooperation   = "COOPERATION"
	EventRequestHelp   = "REQUEST_HELP"
	EventConflict      = "CONFLICT"
	EventRefuse        = "REFUSE"
	EventNegative      = "NEGATIVE"
	EventEnvironmental = "ENVIRONMENTAL"
	EventLLM           = "LLM"
)

// Event is an immutable-once-stored fact describing something that happened.
// A directed event (FromAgent, ToAgent and Content all set) produces
// different side effects than an undirected broadcast event, which fans out
// over AffectedAgents.
type Event struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Description    string         `json:"description"`
	AffectedAgents []string       `json:"affected_agents"`
	StartTime      int64          `json:"start_time"`
	Duration       int64          `json:"duration"`
	Impact         map[string]int `json:"impact,omitempty"`
	Meta           map[string]any `json:"meta,omitempty"`
	Scope          string         `json:"scope,omitempty"`
	Position       *Point         `json:"position,omitempty"`
	FromAgent      string         `json:"from_agent,omitempty"`
	ToAgent        string         `json:"to_agent,omitempty"`
	Content        string         `json:"content,omitempty"`
	Embedding      []float64      `json:"embedding,omitempty"`
	// CreatedAt is the display timestamp set by the store on insert,
	// distinct from the semantic StartTime.
	CreatedAt string `json:"created_at,omitempty"`
}

// Directed reports whether the event is a directed interaction between two
// agents rather than a broadcast.
func (e Event) Directed() bool {
	return e.FromAgent != "" && e.ToAgent != "" && e.Content != ""
}

// eventAlias avoids recursion in UnmarshalJSON.
type eventAlias Event

type rawEvent struct {
	eventAlias
	AffectedAgents json.RawMessage `json:"affected_agents"`
}

// UnmarshalJSON decodes an event, coercing a malformed affected_agents value
// (non-array, or array containing non-strings) to an empty list instead of
// rejecting the payload.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Event(raw.eventAlias)
	e.AffectedAgents = CoerceStringList(raw.AffectedAgents)
	return nil
}

// CoerceStringList interprets raw JSON as a list of strings, returning an
// empty list for anything else. A JSON string holding an encoded array (as
// some row stores return) is decoded one level before coercion.
func CoerceStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err == nil {
		return items
	}
	var nested string
	if err := json.Unmarshal(raw, &nested); err == nil {
		if err := json.Unmarshal([]byte(nested), &items); err == nil && items != nil {
			return items
		}
	}
	return []string{}
}
