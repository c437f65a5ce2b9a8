package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/townlet-ai/townlet/action"
	"github.com/townlet-ai/townlet/core"
)

// Decision is the outcome of one oracle-driven decision or reaction: the raw
// response, the memory that recorded it, the parsed plan and any events the
// plan emitted.
type Decision struct {
	AgentID  string
	Response string
	MemoryID string
	Actions  []action.Action
	Emitted  []core.Event
}

// Decide runs the full decision pipeline for one agent: assemble the
// decision prompt, consult the oracle, record the response, execute the
// parsed plan. An optional extra instruction (e.g. a manual trigger from an
// operator) is appended to the prompt. Requires a configured oracle.
func (e *Engine) Decide(ctx context.Context, agentID, extra string) (*Decision, error) {
	if e.oracle == nil {
		return nil, core.ErrOracleUnavailable
	}
	agent, err := e.agents.Get(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("decide for agent %s: %w", agentID, err)
	}
	text, err := e.prompts.BuildDecisionPrompt(ctx, *agent)
	if err != nil {
		return nil, err
	}
	if extra != "" {
		text += "\n\n" + extra
	}
	return e.runPipeline(ctx, *agent, text)
}

// React runs the narrower reaction pipeline: the prompt covers only the
// triggering event and the agent's own state.
func (e *Engine) React(ctx context.Context, agentID string, event core.Event) (*Decision, error) {
	if e.oracle == nil {
		return nil, core.ErrOracleUnavailable
	}
	agent, err := e.agents.Get(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("react for agent %s: %w", agentID, err)
	}
	text, err := e.prompts.BuildReactionPrompt(*agent, event)
	if err != nil {
		return nil, err
	}
	return e.runPipeline(ctx, *agent, text)
}

// runPipeline consults the oracle and applies the response: an LLM_RESPONSE
// memory, the action plan (MOVE applied directly, interactions emitted as
// events), and a closing RESULT memory. Newly emitted events do not trigger
// further decisions inside this call; their reactions are dispatched on the
// scheduler's next fan-out.
func (e *Engine) runPipeline(ctx context.Context, agent core.Agent, promptText string) (*Decision, error) {
	start := time.Now()
	response, err := e.oracle.Complete(ctx, promptText, agent.Model)
	e.logOracleCall(agent.Model, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("decision for agent %s: %w", agent.ID, err)
	}

	now := core.NowMillis()
	seq := decisionSeq.Add(1)
	responseMemory := core.Memory{
		ID:         fmt.Sprintf("llm-%s-%d-%d", agent.ID, now, seq),
		AgentID:    agent.ID,
		Content:    response,
		Timestamp:  now,
		Importance: scoreImportance(response),
		Type:       core.MemoryLLMResponse,
	}
	if err := e.memories.Insert(ctx, responseMemory); err != nil {
		e.logger.Warn("response memory write failed", "memory_id", responseMemory.ID, "error", err)
	}

	plan := e.newParser(ctx, agent.ID).Parse(response)
	decision := &Decision{
		AgentID:  agent.ID,
		Response: response,
		MemoryID: responseMemory.ID,
		Actions:  plan,
	}
	for _, a := range plan {
		switch a.Kind {
		case action.Move:
			e.applyMove(ctx, agent.ID, a.TargetPosition)
		default:
			if ev, ok := e.emitInteraction(ctx, agent, a); ok {
				decision.Emitted = append(decision.Emitted, ev)
			}
		}
	}

	resultMemory := core.Memory{
		ID:         fmt.Sprintf("result-%s-%d-%d", agent.ID, now, seq),
		AgentID:    agent.ID,
		Content:    extractResult(response),
		Timestamp:  now + 1,
		Importance: core.ImportanceRoutine,
		Type:       core.MemoryResult,
	}
	if err := e.memories.Insert(ctx, resultMemory); err != nil {
		e.logger.Warn("result memory write failed", "memory_id", resultMemory.ID, "error", err)
	}
	return decision, nil
}

// newParser builds an action parser whose targets resolve against the
// current roster, by id or case-insensitive name.
func (e *Engine) newParser(ctx context.Context, selfID string) *action.Parser {
	roster, err := e.agents.List(ctx)
	if err != nil {
		e.logger.Warn("roster load for target resolution failed", "error", err)
	}
	resolve := func(ref string) (string, bool) {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return "", false
		}
		for _, a := range roster {
			if a.ID == selfID {
				continue
			}
			if a.ID == ref || strings.EqualFold(a.Name, ref) {
				return a.ID, true
			}
		}
		return "", false
	}
	return action.NewParser(resolve, func(o *action.Options) { o.Logger = e.logger })
}

func (e *Engine) applyMove(ctx context.Context, agentID string, target core.Point) {
	target = target.Clamp()
	_, err := e.agents.Update(ctx, agentID, func(a *core.Agent) {
		a.Position = target
		a.CurrentAction = fmt.Sprintf("moving to (%d, %d)", target.X, target.Y)
	})
	if err != nil {
		e.logger.Warn("move application failed", "agent_id", agentID, "error", err)
	}
}

// emitInteraction turns one interaction action into a directed event and
// feeds it back through AddEvent.
func (e *Engine) emitInteraction(ctx context.Context, agent core.Agent, a action.Action) (core.Event, bool) {
	toName := e.displayName(ctx, a.TargetID)
	content := a.Message
	if content == "" && a.Item != "" {
		content = "gift: " + a.Item
	}
	if content == "" {
		content = a.Describe(agent.Name, toName)
	}
	event := core.Event{
		ID:             e.uniqueEventID(ctx),
		Type:           a.EventType(),
		Description:    a.Describe(agent.Name, toName),
		AffectedAgents: []string{agent.ID, a.TargetID},
		StartTime:      core.NowMillis(),
		FromAgent:      agent.ID,
		ToAgent:        a.TargetID,
		Content:        content,
	}
	stored, err := e.AddEvent(ctx, event)
	if err != nil {
		e.logger.Warn("interaction event emission failed",
			"agent_id", agent.ID, "target_id", a.TargetID, "error", err)
		return core.Event{}, false
	}
	return stored, true
}

// decisionSeq disambiguates memory ids when two decisions for the same agent
// land within one millisecond.
var decisionSeq atomic.Uint64

var (
	importanceMarker = regexp.MustCompile(`(?i)importance\s*[:：]\s*([1-3])`)
	resultMarker     = regexp.MustCompile(`(?im)^\s*result\s*[:：]\s*(.+)$`)
)

var (
	majorKeywords   = []string{"policy", "tax", "urgent"}
	routineKeywords = []string{"routine", "greeting", "observation"}
)

// scoreImportance ranks an oracle response: an explicit marker wins, then
// keyword tiers, then the default.
func scoreImportance(text string) int {
	if m := importanceMarker.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	lower := strings.ToLower(text)
	for _, kw := range majorKeywords {
		if strings.Contains(lower, kw) {
			return core.ImportanceMajor
		}
	}
	for _, kw := range routineKeywords {
		if strings.Contains(lower, kw) {
			return core.ImportanceRoutine
		}
	}
	return core.ImportanceDefault
}

// extractResult echoes an explicit "result:" marker from the response, or a
// fixed placeholder when the outcome is not yet known.
func extractResult(text string) string {
	if m := resultMarker.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return "outcome pending"
}
