package prompt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/townlet-ai/townlet/core"
	"github.com/townlet-ai/townlet/internal/testutil"
	"github.com/townlet-ai/townlet/store/memstore"
)

func newBuilder(t *testing.T, optFns ...func(o *Options)) (*Builder, *memstore.AgentStore, *memstore.EventStore, *memstore.MemoryStore) {
	t.Helper()
	agents := memstore.NewAgentStore()
	events := memstore.NewEventStore()
	memories := memstore.NewMemoryStore()
	return NewBuilder(agents, events, memories, optFns...), agents, events, memories
}

func TestBuildDecisionPrompt_MissingTemplate(t *testing.T) {
	b, _, _, _ := newBuilder(t)
	agent := testutil.NewAgentBuilder("1", "Lin Fang").NoPrompts().Build()

	_, err := b.BuildDecisionPrompt(context.Background(), agent)
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "decision prompt template")
}

func TestBuildDecisionPrompt_Sections(t *testing.T) {
	ctx := context.Background()
	b, agents, events, memories := newBuilder(t)

	self := testutil.NewAgentBuilder("1", "Lin Fang").
		Role("nurse").
		Emotion("cheerful").
		Relationship("2", 0.3).
		Build()
	other := testutil.NewAgentBuilder("2", "Wang Wei").Role("shopkeeper").Build()
	stranger := testutil.NewAgentBuilder("3", "Lewis").Role("engineer").Build()
	require.NoError(t, agents.Insert(ctx, self))
	require.NoError(t, agents.Insert(ctx, other))
	require.NoError(t, agents.Insert(ctx, stranger))

	require.NoError(t, events.Insert(ctx, core.Event{
		ID: "p1", Type: core.EventPolicy, Description: "medical tax raised to 0.5",
		Meta: map[string]any{"tax": 0.5}, StartTime: 100,
	}))

	require.NoError(t, memories.Insert(ctx, core.Memory{
		ID: "m1", AgentID: "1", Type: core.MemoryEvent, Importance: core.ImportanceMajor,
		Content: "the clinic was crowded all day", Timestamp: 10, RelatedAgents: []string{"2"},
	}))
	require.NoError(t, memories.Insert(ctx, core.Memory{
		ID: "m2", AgentID: "1", Type: core.MemoryDialogue, Importance: core.ImportanceDefault,
		Content: "Wang Wei said to you: come by the shop later", Timestamp: 20, RelatedAgents: []string{"2"},
	}))

	got, err := b.BuildDecisionPrompt(ctx, self)
	require.NoError(t, err)

	assert.Contains(t, got, "Lin Fang")
	assert.Contains(t, got, "Wang Wei (2 interactions)")
	assert.Contains(t, got, "the clinic was crowded all day")
	assert.Contains(t, got, "cheerful")
	assert.Contains(t, got, "affinity 0.30")
	assert.Contains(t, got, "first encounter")
	assert.Contains(t, got, "medical tax raised to 0.5")
	assert.Contains(t, got, `"tax":0.5`)
	assert.Contains(t, got, "Someone just spoke to you")
	assert.Contains(t, got, "Respond to the message")
	assert.Contains(t, got, "JSON array")
}

func TestBuildDecisionPrompt_OpensWithSystemTemplate(t *testing.T) {
	ctx := context.Background()
	b, agents, _, _ := newBuilder(t)

	agent := testutil.NewAgentBuilder("1", "Lin Fang").Build()
	agent.Prompts.System = "Stay in character as {{.name}} at all times."
	require.NoError(t, agents.Insert(ctx, agent))

	got, err := b.BuildDecisionPrompt(ctx, agent)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "Stay in character as Lin Fang at all times."))
}

func TestBuildReactionPrompt_OpensWithSystemTemplate(t *testing.T) {
	b, _, _, _ := newBuilder(t)
	agent := testutil.NewAgentBuilder("1", "Lin Fang").Build()
	event := testutil.NewEventBuilder(core.EventEnvironmental).
		Description("heavy rain").Affected("1").Build()

	got, err := b.BuildReactionPrompt(agent, event)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "You are a resident of the town."))
}

func TestBuildDecisionPrompt_SemanticRetrievalDegrades(t *testing.T) {
	ctx := context.Background()
	oracle := core.NewMockOracle()
	oracle.EmbedErr = assert.AnError
	b, agents, _, memories := newBuilder(t, func(o *Options) { o.Oracle = oracle })

	agent := testutil.NewAgentBuilder("1", "Lin Fang").Build()
	require.NoError(t, agents.Insert(ctx, agent))
	require.NoError(t, memories.Insert(ctx, core.Memory{
		ID: "m1", AgentID: "1", Type: core.MemoryEvent, Content: "quiet morning", Timestamp: 1,
	}))

	got, err := b.BuildDecisionPrompt(ctx, agent)
	require.NoError(t, err)
	assert.NotContains(t, got, "feel relevant")
}

func TestBuildDecisionPrompt_SemanticRetrieval(t *testing.T) {
	ctx := context.Background()
	oracle := core.NewMockOracle()
	b, agents, events, memories := newBuilder(t, func(o *Options) { o.Oracle = oracle })

	agent := testutil.NewAgentBuilder("1", "Lin Fang").Build()
	require.NoError(t, agents.Insert(ctx, agent))
	require.NoError(t, memories.Insert(ctx, core.Memory{
		ID: "m1", AgentID: "1", Type: core.MemoryEvent, Content: "quiet morning", Timestamp: 1,
		Embedding: core.CanonicalEmbedding([]float64{1, 2, 3}),
	}))
	require.NoError(t, events.Insert(ctx, core.Event{
		ID: "e1", Type: core.EventEnvironmental, Description: "sunny spell",
		Embedding: core.CanonicalEmbedding([]float64{1, 2, 3}), StartTime: 1,
	}))

	got, err := b.BuildDecisionPrompt(ctx, agent)
	require.NoError(t, err)
	assert.Contains(t, got, "related event: [ENVIRONMENTAL] sunny spell")
}

func TestBuildReactionPrompt(t *testing.T) {
	b, _, _, _ := newBuilder(t)
	agent := testutil.NewAgentBuilder("1", "Lin Fang").Build()
	event := testutil.NewEventBuilder(core.EventGift).
		Description("a gift from Wang Wei").
		Directed("2", "1", "a box of tea").
		Impact("mood", 5).
		Build()

	got, err := b.BuildReactionPrompt(agent, event)
	require.NoError(t, err)
	assert.Contains(t, got, "[GIFT] a gift from Wang Wei")
	assert.Contains(t, got, "Message for you: a box of tea")
	assert.Contains(t, got, "mood +5")
	assert.Contains(t, got, "React to this event")
}

func TestBuildEventPrompt(t *testing.T) {
	b, _, _, _ := newBuilder(t)

	got, err := b.BuildEventPrompt("Current state:\n{{.context}}", "two residents idle")
	require.NoError(t, err)
	assert.Equal(t, "Current state:\ntwo residents idle", got)

	_, err = b.BuildEventPrompt("", "ctx")
	var cfgErr *core.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestTimeOfDay(t *testing.T) {
	assert.Equal(t, "morning", TimeOfDay(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, "afternoon", TimeOfDay(time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC)))
	assert.Equal(t, "evening", TimeOfDay(time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC)))
	assert.Equal(t, "night", TimeOfDay(time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)))
}
