// Package engine implements event ingestion and propagation: persisting
// events, fanning their side effects out to affected agents (memories,
// attribute deltas, relationship and emotion adjustment, policy memory
// invalidation) and driving the oracle-backed decision pipeline.
package engine

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/townlet-ai/townlet/config"
	"github.com/townlet-ai/townlet/core"
	"github.com/townlet-ai/townlet/logging"
	"github.com/townlet-ai/townlet/prompt"
)

// policyMemoryLimit bounds how many of an agent's memories are scanned when
// invalidating stale policy knowledge.
const policyMemoryLimit = 100

// positive/negative classification of directed interaction types for
// relationship adjustment.
var (
	positiveTypes = map[string]bool{
		core.EventDialogue:    true,
		core.EventGift:        true,
		core.EventCooperation: true,
		core.EventRequestHelp: true,
	}
	negativeTypes = map[string]bool{
		core.EventConflict: true,
		core.EventRefuse:   true,
		core.EventNegative: true,
	}
)

const (
	affinityPositiveDelta = 0.1
	affinityNegativeDelta = -0.2
)

// Engine owns event propagation and the decision pipeline. All collections
// are injected stores; there is no ambient global state.
type Engine struct {
	agents   core.AgentStore
	events   core.EventStore
	memories core.MemoryStore
	oracle   core.Oracle
	prompts  *prompt.Builder

	authority config.Authority
	logger    logging.Logger
}

// Options configure an Engine.
type Options struct {
	Oracle    core.Oracle
	Authority config.Authority
	Logger    logging.Logger
}

// New constructs an Engine over the given stores. Without an oracle the
// engine still ingests events; decision entry points surface
// core.ErrOracleUnavailable.
func New(agents core.AgentStore, events core.EventStore, memories core.MemoryStore, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Authority: config.DefaultAuthority(),
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	e := &Engine{
		agents:    agents,
		events:    events,
		memories:  memories,
		oracle:    opts.Oracle,
		authority: opts.Authority,
		logger:    opts.Logger,
	}
	e.prompts = prompt.NewBuilder(agents, events, memories, func(o *prompt.Options) {
		o.Oracle = opts.Oracle
		o.Logger = opts.Logger
	})
	return e
}

// AddEvent persists an event and applies its side effects. Resubmitting an
// already-stored event id is accepted and never duplicates memories, because
// memory ids derive deterministically from the event and agent ids.
//
// Only a failure of the primary event write is returned; side-effect
// failures are logged and leave the event persisted with a gap.
func (e *Engine) AddEvent(ctx context.Context, event core.Event) (core.Event, error) {
	if event.ID == "" {
		event.ID = core.NewEventID()
	}
	if event.AffectedAgents == nil {
		event.AffectedAgents = []string{}
	}
	if event.StartTime == 0 {
		event.StartTime = core.NowMillis()
	}

	if len(event.Embedding) == 0 && e.oracle != nil && event.Description != "" {
		vec, err := e.oracle.Embed(ctx, event.Description)
		if err != nil {
			e.logger.Warn("event embedding failed, storing without one",
				"event_id", event.ID, "error", err)
		} else {
			event.Embedding = core.CanonicalEmbedding(vec)
		}
	}

	if err := e.events.Insert(ctx, event); err != nil {
		return core.Event{}, fmt.Errorf("persist event %s: %w", event.ID, err)
	}

	if e.isPolicyChange(event) {
		e.invalidatePolicyMemories(ctx, event)
	}

	if event.Directed() {
		e.applyDirected(ctx, event)
	} else {
		e.applyBroadcast(ctx, event)
	}

	stored, err := e.events.Get(ctx, event.ID)
	if err != nil {
		return event, nil
	}
	return *stored, nil
}

// isPolicyChange reports whether an event resets the town's policy state:
// POLICY-typed, or a description/meta that signals a policy or tax change.
func (e *Engine) isPolicyChange(event core.Event) bool {
	if event.Type == core.EventPolicy {
		return true
	}
	desc := strings.ToLower(event.Description)
	if strings.Contains(desc, "policy") || strings.Contains(desc, "tax") {
		return true
	}
	for k := range event.Meta {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "policy") || strings.Contains(lk, "tax") {
			return true
		}
	}
	return false
}

// invalidatePolicyMemories deletes every agent's stale policy/tax memories
// and writes one fresh POLICY memory describing the new state. This is a
// full-population side effect; old rows always go before the new one lands.
func (e *Engine) invalidatePolicyMemories(ctx context.Context, event core.Event) {
	agents, err := e.agents.List(ctx)
	if err != nil {
		e.logger.Warn("policy invalidation skipped: agent listing failed",
			"event_id", event.ID, "error", err)
		return
	}
	for _, agent := range agents {
		memories, err := e.memories.ListByAgent(ctx, agent.ID, policyMemoryLimit, 0)
		if err != nil {
			e.logger.Warn("policy invalidation: memory listing failed",
				"agent_id", agent.ID, "error", err)
			continue
		}
		for _, m := range memories {
			if !isPolicyMemory(m) {
				continue
			}
			if _, err := e.memories.Delete(ctx, m.ID); err != nil {
				e.logger.Warn("policy invalidation: delete failed",
					"memory_id", m.ID, "error", err)
			}
		}
		fresh := core.Memory{
			ID:         core.EventMemoryID(event.ID, agent.ID, "policy"),
			AgentID:    agent.ID,
			Content:    "New policy in effect: " + event.Description,
			Timestamp:  event.StartTime,
			Importance: core.ImportanceMajor,
			Type:       core.MemoryPolicy,
			Tags:       []string{"policy"},
			Embedding:  event.Embedding,
		}
		if err := e.memories.Insert(ctx, fresh); err != nil {
			e.logger.Warn("policy invalidation: insert failed",
				"memory_id", fresh.ID, "error", err)
		}
	}
}

func isPolicyMemory(m core.Memory) bool {
	if m.Type == core.MemoryPolicy {
		return true
	}
	for _, tag := range m.Tags {
		lt := strings.ToLower(tag)
		if strings.Contains(lt, "policy") || strings.Contains(lt, "tax") {
			return true
		}
	}
	content := strings.ToLower(m.Content)
	return strings.Contains(content, "policy") || strings.Contains(content, "tax")
}

// applyDirected handles an interaction between two agents: a DIALOGUE memory
// for each side (the speaker's before the listener's), impact deltas on
// both, then relationship and emotion adjustment.
func (e *Engine) applyDirected(ctx context.Context, event core.Event) {
	fromName, toName := e.displayName(ctx, event.FromAgent), e.displayName(ctx, event.ToAgent)

	fromMemory := core.Memory{
		ID:            core.EventMemoryID(event.ID, event.FromAgent, "from"),
		AgentID:       event.FromAgent,
		Content:       fmt.Sprintf("You said to %s: %s", toName, event.Content),
		Timestamp:     event.StartTime,
		Importance:    core.ImportanceDefault,
		Type:          core.MemoryDialogue,
		RelatedAgents: []string{event.ToAgent},
		Embedding:     event.Embedding,
	}
	if err := e.memories.Insert(ctx, fromMemory); err != nil {
		e.logger.Warn("dialogue memory write failed", "memory_id", fromMemory.ID, "error", err)
	}
	toMemory := core.Memory{
		ID:            core.EventMemoryID(event.ID, event.ToAgent, "to"),
		AgentID:       event.ToAgent,
		Content:       fmt.Sprintf("%s said to you: %s", fromName, event.Content),
		Timestamp:     event.StartTime,
		Importance:    core.ImportanceDefault,
		Type:          core.MemoryDialogue,
		RelatedAgents: []string{event.FromAgent},
		Embedding:     event.Embedding,
	}
	if err := e.memories.Insert(ctx, toMemory); err != nil {
		e.logger.Warn("dialogue memory write failed", "memory_id", toMemory.ID, "error", err)
	}

	e.applyImpact(ctx, event.FromAgent, event.Impact)
	e.applyImpact(ctx, event.ToAgent, event.Impact)
	e.adjustRelationship(ctx, event)
}

// applyBroadcast fans an undirected event out over its affected agents. Each
// memory references the other participants so they count toward the agent's
// frequent-partner ranking.
func (e *Engine) applyBroadcast(ctx context.Context, event core.Event) {
	for _, agentID := range event.AffectedAgents {
		others := make([]string, 0, len(event.AffectedAgents))
		for _, id := range event.AffectedAgents {
			if id != agentID {
				others = append(others, id)
			}
		}
		memory := core.Memory{
			ID:            core.EventMemoryID(event.ID, agentID, ""),
			AgentID:       agentID,
			Content:       "participated in event: " + event.Description,
			Timestamp:     event.StartTime,
			Importance:    core.ImportanceDefault,
			Type:          core.MemoryEvent,
			RelatedAgents: others,
			Tags:          []string{strings.ToLower(event.Type)},
			Embedding:     event.Embedding,
		}
		if err := e.memories.Insert(ctx, memory); err != nil {
			e.logger.Warn("event memory write failed", "memory_id", memory.ID, "error", err)
		}
		e.applyImpact(ctx, agentID, event.Impact)
	}
}

// applyImpact adds attribute deltas to one agent. Unknown attribute names
// are ignored.
func (e *Engine) applyImpact(ctx context.Context, agentID string, impact map[string]int) {
	if len(impact) == 0 {
		return
	}
	_, err := e.agents.Update(ctx, agentID, func(a *core.Agent) {
		for attr, delta := range impact {
			switch strings.ToLower(attr) {
			case "energy":
				a.Attributes.Energy += delta
			case "mood":
				a.Attributes.Mood += delta
			case "sociability":
				a.Attributes.Sociability += delta
			}
		}
	})
	if err != nil {
		e.logger.Warn("impact application failed", "agent_id", agentID, "error", err)
	}
}

// adjustRelationship applies the symmetric affinity delta for a directed
// interaction and sets the type-specific emotion labels.
func (e *Engine) adjustRelationship(ctx context.Context, event core.Event) {
	var delta float64
	switch {
	case positiveTypes[event.Type]:
		delta = affinityPositiveDelta
	case negativeTypes[event.Type]:
		delta = affinityNegativeDelta
	default:
		return
	}

	ts := event.StartTime
	e.bumpAffinity(ctx, event.FromAgent, event.ToAgent, delta, ts)
	e.bumpAffinity(ctx, event.ToAgent, event.FromAgent, delta, ts)

	switch {
	case event.Type == core.EventGift:
		e.setEmotion(ctx, event.ToAgent, "pleased")
	case event.Type == core.EventCooperation:
		e.setEmotion(ctx, event.FromAgent, "positive")
		e.setEmotion(ctx, event.ToAgent, "positive")
	case delta > 0:
		e.setEmotion(ctx, event.ToAgent, "cheerful")
	default:
		e.setEmotion(ctx, event.FromAgent, "displeased")
		e.setEmotion(ctx, event.ToAgent, "dejected")
	}
}

func (e *Engine) bumpAffinity(ctx context.Context, ownerID, otherID string, delta float64, ts int64) {
	_, err := e.agents.Update(ctx, ownerID, func(a *core.Agent) {
		if a.Relationships == nil {
			a.Relationships = map[string]core.Relationship{}
		}
		rel := a.Relationships[otherID]
		rel.Affinity = math.Round((rel.Affinity+delta)*100) / 100
		rel.Interactions++
		rel.LastInteraction = ts
		a.Relationships[otherID] = rel
	})
	if err != nil {
		e.logger.Warn("relationship update failed",
			"agent_id", ownerID, "other_id", otherID, "error", err)
	}
}

func (e *Engine) setEmotion(ctx context.Context, agentID, emotion string) {
	_, err := e.agents.Update(ctx, agentID, func(a *core.Agent) { a.Emotion = emotion })
	if err != nil {
		e.logger.Warn("emotion update failed", "agent_id", agentID, "error", err)
	}
}

func (e *Engine) displayName(ctx context.Context, agentID string) string {
	a, err := e.agents.Get(ctx, agentID)
	if err != nil {
		return agentID
	}
	return a.Name
}

// uniqueEventID derives a fresh ms-timestamp event id, bumping the value
// until it does not collide with a stored event.
func (e *Engine) uniqueEventID(ctx context.Context) string {
	base, err := strconv.ParseInt(core.NewEventID(), 10, 64)
	if err != nil {
		return core.NewID()
	}
	for i := 0; i < 1000; i++ {
		id := strconv.FormatInt(base+int64(i), 10)
		if _, err := e.events.Get(ctx, id); err != nil {
			return id
		}
	}
	return core.NewID()
}

// oracleCallLogger is satisfied by logging.TownLogger; plain loggers fall
// back to a generic entry.
type oracleCallLogger interface {
	LogOracleCall(model string, dur time.Duration, success bool, err error)
}

func (e *Engine) logOracleCall(model string, dur time.Duration, err error) {
	if ocl, ok := e.logger.(oracleCallLogger); ok {
		ocl.LogOracleCall(model, dur, err == nil, err)
		return
	}
	if err != nil {
		e.logger.Error("oracle call failed", "model", model, "duration", dur, "error", err)
		return
	}
	e.logger.Debug("oracle call completed", "model", model, "duration", dur)
}
