package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/townlet-ai/townlet/core"
	"github.com/townlet-ai/townlet/internal/util"
	"github.com/townlet-ai/townlet/prompt"
	"github.com/townlet-ai/townlet/schema"
)

const (
	listRetryAttempts = 3
	listRetryBackoff  = 500 * time.Millisecond
)

// GenerateEvent asks the town-authority persona for a new world event,
// validates it and persists it through AddEvent. A response the schema
// rejects degrades to a description-only LLM event instead of being lost.
func (e *Engine) GenerateEvent(ctx context.Context) (core.Event, error) {
	if e.oracle == nil {
		return core.Event{}, core.ErrOracleUnavailable
	}
	if e.authority.SystemPrompt == "" {
		return core.Event{}, &core.ConfigurationError{Subject: "town authority", Missing: "system prompt"}
	}

	agents, err := e.agents.List(ctx)
	if err != nil {
		return core.Event{}, fmt.Errorf("generate event: %w", err)
	}
	recent, err := e.events.List(ctx, core.EventFilter{Limit: 5})
	if err != nil {
		e.logger.Warn("recent event listing failed, generating without history", "error", err)
		recent = nil
	}

	eventPrompt, err := e.prompts.BuildEventPrompt(e.authority.EventPrompt, prompt.WorldContext(agents, recent))
	if err != nil {
		return core.Event{}, err
	}
	full := e.authority.SystemPrompt + "\n\n" + eventPrompt

	start := time.Now()
	response, err := e.oracle.Complete(ctx, full, e.authority.Model)
	e.logOracleCall(e.authority.Model, time.Since(start), err)
	if err != nil {
		return core.Event{}, fmt.Errorf("generate event: %w", err)
	}

	event, err := schema.DecodeEvent([]byte(response))
	if err != nil {
		e.logger.Warn("authority response failed validation, degrading to raw event", "error", err)
		event = core.Event{
			Type:           core.EventLLM,
			Description:    strings.TrimSpace(response),
			AffectedAgents: []string{},
		}
	}
	// The oracle is never trusted with id assignment.
	event.ID = e.uniqueEventID(ctx)
	return e.AddEvent(ctx, event)
}

// Events lists the event log with bounded retry on transient store failures.
// Exhausted retries degrade to an empty listing; read paths prefer
// availability over completeness.
func (e *Engine) Events(ctx context.Context, filter core.EventFilter) []core.Event {
	events, err := util.Retry(ctx, listRetryAttempts, listRetryBackoff, func() ([]core.Event, error) {
		return e.events.List(ctx, filter)
	})
	if err != nil {
		e.logger.Error("event listing failed after retries, returning empty", "error", err)
		return []core.Event{}
	}
	return events
}

// AgentLog returns every event that touched one agent, oldest first: a
// chronological view of the agent's public history.
func (e *Engine) AgentLog(ctx context.Context, agentID string) []core.Event {
	all := e.Events(ctx, core.EventFilter{Limit: 10_000})
	var log []core.Event
	for _, ev := range all {
		if ev.FromAgent == agentID || ev.ToAgent == agentID {
			log = append(log, ev)
			continue
		}
		for _, id := range ev.AffectedAgents {
			if id == agentID {
				log = append(log, ev)
				break
			}
		}
	}
	sort.SliceStable(log, func(i, j int) bool { return log[i].StartTime < log[j].StartTime })
	return log
}

// SeedAgents inserts the given presets when the roster is empty. It is a
// no-op on a populated store, so it is safe to run on every startup.
func (e *Engine) SeedAgents(ctx context.Context, presets []core.Agent) error {
	existing, err := e.agents.List(ctx)
	if err != nil {
		return fmt.Errorf("seed agents: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	for _, agent := range presets {
		if err := e.agents.Insert(ctx, agent); err != nil {
			return fmt.Errorf("seed agent %s: %w", agent.ID, err)
		}
	}
	e.logger.Info("seeded agent roster", "count", len(presets))
	return nil
}
