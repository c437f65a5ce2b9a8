package core

import "fmt"

// Memory type tags.
const (
	MemoryObservation = "OBSERVATION"
	MemoryEvent       = "EVENT"
	MemoryDialogue    = "DIALOGUE"
	MemoryPolicy      = "POLICY"
	MemoryLLMResponse = "LLM_RESPONSE"
	MemoryResult      = "RESULT"
)

// Importance tiers. Routine facts are 1, defaults 2, major events 3.
const (
	ImportanceRoutine = 1
	ImportanceDefault = 2
	ImportanceMajor   = 3
)

// Memory is an atomic fact an agent retains. It is owned by exactly one
// agent and references other agents only by id.
type Memory struct {
	ID            string    `json:"id"`
	AgentID       string    `json:"agent_id"`
	Content       string    `json:"content"`
	Timestamp     int64     `json:"timestamp"`
	Importance    int       `json:"importance"`
	Type          string    `json:"type"`
	RelatedAgents []string  `json:"related_agents,omitempty"`
	Location      string    `json:"location,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Embedding     []float64 `json:"embedding,omitempty"`
}

// EventMemoryID derives the deterministic id for the memory an event writes
// to one agent. Re-applying the same event therefore upserts the same row
// instead of duplicating it. Role distinguishes the two sides of a directed
// interaction ("from"/"to") and the policy replacement memory ("policy");
// it is empty for broadcast fan-out.
func EventMemoryID(eventID, agentID, role string) string {
	if role == "" {
		return fmt.Sprintf("%s-%s", eventID, agentID)
	}
	return fmt.Sprintf("%s-%s-%s", eventID, agentID, role)
}
