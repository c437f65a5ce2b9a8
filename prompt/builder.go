// Package prompt assembles the bounded prompts fed to the decision oracle:
// the full decision prompt for one agent, the narrower reaction prompt for a
// single event, and the town-authority event-generation prompt.
//
// Building a prompt never mutates state. Semantic retrieval consults the
// oracle for an embedding; any failure there degrades to omitting the
// section rather than failing the build.
package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/townlet-ai/townlet/core"
	"github.com/townlet-ai/townlet/internal/util"
	"github.com/townlet-ai/townlet/logging"
)

const (
	memoryWindow       = 50
	digestSize         = 3
	partnerCount       = 3
	policyCount        = 3
	dialogueCount      = 5
	reflectionWindow   = 10
	reflectionTopWords = 5
	semanticTopK       = 3
)

// actionInstructions closes every oracle-facing prompt so responses stay
// machine-extractable. The parser still tolerates free text around the plan.
const actionInstructions = `Now decide what to do next. First think in one or two sentences, then output your action plan as a JSON array. Examples:
[{"action": "MOVE", "target_position": [120, 200]}]
[{"action": "SPEAK", "target": "Wang Wei", "message": "Good morning!"}]
[{"action": "GIFT", "target": "Lin Fang", "item": "herbal tea", "message": "For you."}]
Valid actions: MOVE, SPEAK, GIFT, COOPERATE, REQUEST_HELP. An empty array [] is a valid plan if you choose to do nothing.`

// Builder assembles prompts from read-only views of the stores. The oracle
// is optional; without one the semantic-retrieval section is skipped.
type Builder struct {
	agents   core.AgentStore
	events   core.EventStore
	memories core.MemoryStore
	oracle   core.Oracle
	logger   logging.Logger
}

// Options configure a Builder.
type Options struct {
	Logger logging.Logger
	Oracle core.Oracle
}

// NewBuilder constructs a Builder over the given stores.
func NewBuilder(agents core.AgentStore, events core.EventStore, memories core.MemoryStore, optFns ...func(o *Options)) *Builder {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Builder{
		agents:   agents,
		events:   events,
		memories: memories,
		oracle:   opts.Oracle,
		logger:   opts.Logger,
	}
}

// BuildDecisionPrompt composes the full decision prompt for one agent: its
// system persona, identity, frequent interaction partners, a memory digest, semantically
// related records, goal, emotion, the visible population, recent policies, a
// dialogue trail and a short self-reflection. The agent's configured decision
// template is required; a missing one is a configuration error, never
// silently defaulted here.
func (b *Builder) BuildDecisionPrompt(ctx context.Context, agent core.Agent) (string, error) {
	if agent.Prompts.Decision == "" {
		return "", &core.ConfigurationError{
			Subject: fmt.Sprintf("agent %s", agent.ID),
			Missing: "decision prompt template",
		}
	}
	state := TemplateState(agent)

	memories, err := b.memories.ListByAgent(ctx, agent.ID, memoryWindow, 0)
	if err != nil {
		b.logger.Warn("memory load failed during prompt build", "agent_id", agent.ID, "error", err)
		memories = nil
	}

	var sections []string
	if s := systemSection(agent, state); s != "" {
		sections = append(sections, s)
	}
	if incoming, ok := incomingDialogue(memories); ok {
		sections = append(sections, "Someone just spoke to you: "+incoming.Content)
	}

	sections = append(sections, b.identitySection(agent, state))
	if s := b.partnerSection(ctx, memories); s != "" {
		sections = append(sections, s)
	}
	if s := memoryDigest(memories); s != "" {
		sections = append(sections, s)
	}
	if s := b.semanticSection(ctx, agent, memories); s != "" {
		sections = append(sections, s)
	}
	sections = append(sections, goalSection(agent), emotionSection(agent))
	if s := b.populationSection(ctx, agent); s != "" {
		sections = append(sections, s)
	}
	if s := b.policySection(ctx); s != "" {
		sections = append(sections, s)
	}
	if s := dialogueTrail(memories); s != "" {
		sections = append(sections, s)
	}
	if s := reflection(memories); s != "" {
		sections = append(sections, s)
	}

	decision, err := util.RenderTemplate(agent.Prompts.Decision, state)
	if err != nil {
		return "", fmt.Errorf("render decision template for agent %s: %w", agent.ID, err)
	}
	sections = append(sections, decision)

	if _, ok := incomingDialogue(memories); ok {
		sections = append(sections, "Respond to the message you just received as part of your plan.")
	}
	sections = append(sections, actionInstructions)
	return strings.Join(sections, "\n\n"), nil
}

// BuildReactionPrompt composes the narrower prompt used when an agent reacts
// to one specific event: system persona, identity and own state plus the
// event itself, with no population scan or memory retrieval.
func (b *Builder) BuildReactionPrompt(agent core.Agent, event core.Event) (string, error) {
	state := TemplateState(agent)
	var sections []string
	if s := systemSection(agent, state); s != "" {
		sections = append(sections, s)
	}
	sections = append(sections,
		b.identitySection(agent, state),
		emotionSection(agent),
		fmt.Sprintf("Your current state: %s, at (%d, %d). Energy %d, mood %d, sociability %d.",
			agent.State, agent.Position.X, agent.Position.Y,
			agent.Attributes.Energy, agent.Attributes.Mood, agent.Attributes.Sociability),
	)

	ev := fmt.Sprintf("A new event concerns you: [%s] %s", event.Type, event.Description)
	if event.Directed() && event.ToAgent == agent.ID {
		ev += fmt.Sprintf("\nMessage for you: %s", event.Content)
	}
	if len(event.Impact) > 0 {
		parts := make([]string, 0, len(event.Impact))
		for _, k := range sortedKeys(event.Impact) {
			parts = append(parts, fmt.Sprintf("%s %+d", k, event.Impact[k]))
		}
		ev += fmt.Sprintf("\nExpected impact on you: %s.", strings.Join(parts, ", "))
	}
	sections = append(sections, ev, "React to this event in character.", actionInstructions)
	return strings.Join(sections, "\n\n"), nil
}

// BuildEventPrompt renders the town-authority event template against a world
// context summary. The template is required configuration.
func (b *Builder) BuildEventPrompt(eventTemplate, worldCtx string) (string, error) {
	if eventTemplate == "" {
		return "", &core.ConfigurationError{Subject: "town authority", Missing: "event prompt template"}
	}
	return util.RenderTemplate(eventTemplate, map[string]any{"context": worldCtx})
}

// systemSection renders the agent's system template, the persona framing
// every oracle-facing prompt opens with. A template that fails to render is
// passed through verbatim rather than dropped.
func systemSection(agent core.Agent, state map[string]any) string {
	if agent.Prompts.System == "" {
		return ""
	}
	if rendered, err := util.RenderTemplate(agent.Prompts.System, state); err == nil {
		return rendered
	}
	return agent.Prompts.System
}

func (b *Builder) identitySection(agent core.Agent, state map[string]any) string {
	if agent.Prompts.Role != "" {
		if rendered, err := util.RenderTemplate(agent.Prompts.Role, state); err == nil {
			return rendered
		}
	}
	role := agent.Role
	if role == "" {
		role = "resident"
	}
	return fmt.Sprintf("You are %s, a %s living in the town.", agent.Name, role)
}

// partnerSection lists the agents this one interacts with most, counted over
// the related-agent references in its recent memories.
func (b *Builder) partnerSection(ctx context.Context, memories []core.Memory) string {
	freq := map[string]int{}
	for _, m := range memories {
		for _, id := range m.RelatedAgents {
			freq[id]++
		}
	}
	if len(freq) == 0 {
		return ""
	}
	ids := make([]string, 0, len(freq))
	for id := range freq {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if freq[ids[i]] != freq[ids[j]] {
			return freq[ids[i]] > freq[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > partnerCount {
		ids = ids[:partnerCount]
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name := id
		if a, err := b.agents.Get(ctx, id); err == nil {
			name = a.Name
		}
		names = append(names, fmt.Sprintf("%s (%d interactions)", name, freq[id]))
	}
	return "You interact most often with: " + strings.Join(names, ", ") + "."
}

// memoryDigest flattens the top memories by importance, then recency.
func memoryDigest(memories []core.Memory) string {
	if len(memories) == 0 {
		return ""
	}
	ranked := append([]core.Memory(nil), memories...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Importance != ranked[j].Importance {
			return ranked[i].Importance > ranked[j].Importance
		}
		return ranked[i].Timestamp > ranked[j].Timestamp
	})
	if len(ranked) > digestSize {
		ranked = ranked[:digestSize]
	}
	lines := make([]string, 0, len(ranked)+1)
	lines = append(lines, "What you remember best:")
	for _, m := range ranked {
		lines = append(lines, fmt.Sprintf("- [%s] %s", m.Type, m.Content))
	}
	return strings.Join(lines, "\n")
}

// semanticSection retrieves memories, events and agents nearest to a seed
// text. Seed preference: the latest dialogue aimed at this agent, else the
// latest memory. Any failure degrades to omitting the section.
func (b *Builder) semanticSection(ctx context.Context, agent core.Agent, memories []core.Memory) string {
	if b.oracle == nil {
		return ""
	}
	seed := ""
	if incoming, ok := incomingDialogue(memories); ok {
		seed = incoming.Content
	} else if len(memories) > 0 {
		seed = memories[0].Content
	}
	if seed == "" {
		return ""
	}
	vec, err := b.oracle.Embed(ctx, seed)
	if err != nil {
		b.logger.Debug("semantic retrieval skipped", "agent_id", agent.ID, "error", err)
		return ""
	}
	vec = core.CanonicalEmbedding(vec)

	var lines []string
	if sims, err := b.memories.SimilarMemories(ctx, vec, semanticTopK); err == nil {
		for _, m := range sims {
			if m.AgentID == agent.ID {
				lines = append(lines, "- related memory: "+m.Content)
			}
		}
	}
	if sims, err := b.events.SimilarEvents(ctx, vec, semanticTopK); err == nil {
		for _, e := range sims {
			lines = append(lines, fmt.Sprintf("- related event: [%s] %s", e.Type, e.Description))
		}
	}
	if sims, err := b.agents.SimilarAgents(ctx, vec, semanticTopK); err == nil {
		for _, a := range sims {
			if a.ID != agent.ID {
				lines = append(lines, fmt.Sprintf("- related resident: %s (%s)", a.Name, a.Role))
			}
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "Things that feel relevant right now:\n" + strings.Join(lines, "\n")
}

func goalSection(agent core.Agent) string {
	if agent.Goal != "" {
		return "Your current goal: " + agent.Goal
	}
	return "You have no explicit goal right now; act in character."
}

func emotionSection(agent core.Agent) string {
	if agent.Emotion != "" {
		return "Your current emotion: " + agent.Emotion + "."
	}
	return fmt.Sprintf("Your current mood level: %d/100.", agent.Attributes.Mood)
}

// populationSection renders every other agent with the relationship this one
// holds toward it. All residents are visible; there is no spatial culling.
func (b *Builder) populationSection(ctx context.Context, agent core.Agent) string {
	all, err := b.agents.List(ctx)
	if err != nil {
		b.logger.Warn("agent listing failed during prompt build", "agent_id", agent.ID, "error", err)
		return ""
	}
	var lines []string
	for _, other := range all {
		if other.ID == agent.ID {
			continue
		}
		rel := "first encounter"
		if r, ok := agent.Relationships[other.ID]; ok {
			rel = fmt.Sprintf("affinity %.2f, %d interactions", r.Affinity, r.Interactions)
		}
		lines = append(lines, fmt.Sprintf("- %s (%s) at (%d, %d), %s — %s",
			other.Name, other.Role, other.Position.X, other.Position.Y, other.State, rel))
	}
	if len(lines) == 0 {
		return ""
	}
	return "Residents around you:\n" + strings.Join(lines, "\n")
}

// policySection lists the most recent policy events with their meta fields.
func (b *Builder) policySection(ctx context.Context) string {
	events, err := b.events.List(ctx, core.EventFilter{Type: core.EventPolicy, Limit: policyCount})
	if err != nil || len(events) == 0 {
		return ""
	}
	lines := make([]string, 0, len(events)+1)
	lines = append(lines, "Policies currently in effect (most recent first):")
	for _, e := range events {
		line := "- " + e.Description
		if len(e.Meta) > 0 {
			if meta, err := json.Marshal(e.Meta); err == nil {
				line += " " + string(meta)
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// dialogueTrail lists the most recent dialogue memories, newest first.
func dialogueTrail(memories []core.Memory) string {
	var lines []string
	for _, m := range memories {
		if m.Type != core.MemoryDialogue {
			continue
		}
		lines = append(lines, "- "+m.Content)
		if len(lines) == dialogueCount {
			break
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "Recent conversations:\n" + strings.Join(lines, "\n")
}

var wordSplit = regexp.MustCompile(`[^a-zA-Z]+`)

var stopwords = map[string]bool{
	"the": true, "and": true, "you": true, "your": true, "for": true,
	"with": true, "that": true, "this": true, "said": true, "have": true,
	"are": true, "was": true, "has": true, "event": true, "participated": true,
}

// reflection summarizes the dominant themes of the recent memory window and
// notes when the window's oldest and newest entries no longer resemble each
// other, a cheap signal that the agent's situation is shifting.
func reflection(memories []core.Memory) string {
	window := memories
	if len(window) > reflectionWindow {
		window = window[:reflectionWindow]
	}
	if len(window) == 0 {
		return ""
	}
	freq := map[string]int{}
	for _, m := range window {
		for _, w := range wordSplit.Split(strings.ToLower(m.Content), -1) {
			if len(w) < 3 || stopwords[w] {
				continue
			}
			freq[w]++
		}
	}
	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > reflectionTopWords {
		words = words[:reflectionTopWords]
	}
	if len(words) == 0 {
		return ""
	}
	s := "Reflecting on recent days, what occupies you most: " + strings.Join(words, ", ") + "."
	newest, oldest := window[0], window[len(window)-1]
	if len(window) > 1 && newest.Content != oldest.Content {
		s += " Your recent experiences differ from earlier ones; you sense things changing."
	}
	return s
}

// incomingDialogue reports whether the newest memory is a dialogue someone
// directed at this agent.
func incomingDialogue(memories []core.Memory) (core.Memory, bool) {
	if len(memories) == 0 {
		return core.Memory{}, false
	}
	m := memories[0]
	if m.Type == core.MemoryDialogue && strings.Contains(m.Content, "said to you") {
		return m, true
	}
	return core.Memory{}, false
}

// TemplateState exposes the placeholder values available to agent prompt
// templates.
func TemplateState(agent core.Agent) map[string]any {
	return map[string]any{
		"name":        agent.Name,
		"role":        agent.Role,
		"mood":        agent.Attributes.Mood,
		"emotion":     agent.Emotion,
		"personality": agent.Personality,
		"x":           agent.Position.X,
		"y":           agent.Position.Y,
		"state":       agent.State,
		"timeOfDay":   TimeOfDay(time.Now()),
	}
}

// TimeOfDay buckets a wall-clock time into the coarse label prompts use.
func TimeOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "morning"
	case h >= 12 && h < 18:
		return "afternoon"
	case h >= 18 && h < 23:
		return "evening"
	default:
		return "night"
	}
}

// WorldContext summarizes the public town state for the event-generator
// persona: time of day, every resident's visible fields and the most recent
// events.
func WorldContext(agents []core.Agent, events []core.Event) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Time of day: %s.\n", TimeOfDay(time.Now()))
	sb.WriteString("Residents:\n")
	for _, a := range agents {
		fmt.Fprintf(&sb, "- %s (%s), at (%d, %d), state %s, mood %d, emotion %q\n",
			a.Name, a.Role, a.Position.X, a.Position.Y, a.State, a.Attributes.Mood, a.Emotion)
	}
	if len(events) > 0 {
		sb.WriteString("Recent events:\n")
		for i, e := range events {
			if i == 5 {
				break
			}
			fmt.Fprintf(&sb, "- [%s] %s\n", e.Type, e.Description)
		}
	}
	return sb.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
