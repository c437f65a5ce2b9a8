package testutil

import (
	"github.com/townlet-ai/townlet/core"
)

// AgentBuilder provides a fluent helper for constructing agents in tests.
// Chain only the parts you need; sensible defaults are applied.
type AgentBuilder struct {
	agent core.Agent
}

// NewAgentBuilder creates a builder with a minimal valid agent.
func NewAgentBuilder(id, name string) *AgentBuilder {
	return &AgentBuilder{agent: core.Agent{
		ID:    id,
		Name:  name,
		State: "IDLE",
		Attributes: core.Attributes{
			Energy:      100,
			Mood:        50,
			Sociability: 50,
		},
		Relationships: map[string]core.Relationship{},
		Prompts: core.PromptSet{
			System:   "You are a resident of the town.",
			Role:     "You are " + name + ".",
			Decision: "Decide your next action.",
		},
	}}
}

// Position sets the agent position (chainable).
func (b *AgentBuilder) Position(x, y int) *AgentBuilder {
	b.agent.Position = core.Point{X: x, Y: y}
	return b
}

// Role sets the agent occupation (chainable).
func (b *AgentBuilder) Role(role string) *AgentBuilder { b.agent.Role = role; return b }

// Emotion sets the agent mood label (chainable).
func (b *AgentBuilder) Emotion(e string) *AgentBuilder { b.agent.Emotion = e; return b }

// Relationship sets one directed relationship entry (chainable).
func (b *AgentBuilder) Relationship(otherID string, affinity float64) *AgentBuilder {
	b.agent.Relationships[otherID] = core.Relationship{Affinity: affinity}
	return b
}

// NoPrompts clears the prompt templates, simulating an unconfigured agent.
func (b *AgentBuilder) NoPrompts() *AgentBuilder {
	b.agent.Prompts = core.PromptSet{}
	return b
}

// Build returns the constructed agent.
func (b *AgentBuilder) Build() core.Agent { return b.agent }

// EventBuilder provides a fluent helper for constructing events in tests.
type EventBuilder struct {
	event core.Event
}

// NewEventBuilder creates a builder with a generated id and EVENT defaults.
func NewEventBuilder(eventType string) *EventBuilder {
	return &EventBuilder{event: core.Event{
		ID:             core.NewEventID(),
		Type:           eventType,
		AffectedAgents: []string{},
		StartTime:      core.NowMillis(),
		Duration:       10_000,
	}}
}

// ID overrides the auto-generated event id (chainable).
func (b *EventBuilder) ID(id string) *EventBuilder { b.event.ID = id; return b }

// Description sets the event description (chainable).
func (b *EventBuilder) Description(d string) *EventBuilder { b.event.Description = d; return b }

// Affected sets the affected agent id list (chainable).
func (b *EventBuilder) Affected(ids ...string) *EventBuilder {
	b.event.AffectedAgents = ids
	return b
}

// Directed makes the event a directed interaction (chainable).
func (b *EventBuilder) Directed(from, to, content string) *EventBuilder {
	b.event.FromAgent = from
	b.event.ToAgent = to
	b.event.Content = content
	b.event.AffectedAgents = []string{from, to}
	return b
}

// Impact sets one impact delta (chainable).
func (b *EventBuilder) Impact(attr string, delta int) *EventBuilder {
	if b.event.Impact == nil {
		b.event.Impact = map[string]int{}
	}
	b.event.Impact[attr] = delta
	return b
}

// Meta sets one meta entry (chainable).
func (b *EventBuilder) Meta(key string, value any) *EventBuilder {
	if b.event.Meta == nil {
		b.event.Meta = map[string]any{}
	}
	b.event.Meta[key] = value
	return b
}

// Build returns the constructed event.
func (b *EventBuilder) Build() core.Event { return b.event }
