package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/townlet-ai/townlet/core"
)

// Interface compliance (compile-time assertions)
var (
	_ core.AgentStore  = (*AgentStore)(nil)
	_ core.EventStore  = (*EventStore)(nil)
	_ core.MemoryStore = (*MemoryStore)(nil)
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "town.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAgentStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t).Agents()

	agent := core.Agent{
		ID: "1", Name: "Lin Fang", Role: "nurse",
		Position:      core.Point{X: 120, Y: 240},
		Attributes:    core.Attributes{Energy: 100, Mood: 70, Sociability: 60},
		Relationships: map[string]core.Relationship{"2": {Affinity: 0.3, Interactions: 2}},
	}
	require.NoError(t, s.Insert(ctx, agent))

	got, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, agent, *got)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAgentStore_UpsertAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t).Agents()
	require.NoError(t, s.Insert(ctx, core.Agent{ID: "1", Name: "Lin Fang"}))
	require.NoError(t, s.Insert(ctx, core.Agent{ID: "1", Name: "Lin Fang", State: "WORKING"}))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "WORKING", all[0].State)

	updated, err := s.Update(ctx, "1", func(a *core.Agent) { a.Attributes.Mood = 90 })
	require.NoError(t, err)
	assert.Equal(t, 90, updated.Attributes.Mood)

	_, err = s.Update(ctx, "missing", func(a *core.Agent) {})
	assert.ErrorIs(t, err, core.ErrNotFound)

	ok, err := s.Delete(ctx, "1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Delete(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEventStore_ListFilterAndPaging(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t).Events()
	require.NoError(t, s.Insert(ctx, core.Event{ID: "a", Type: "POLICY", Description: "first", StartTime: 1}))
	require.NoError(t, s.Insert(ctx, core.Event{ID: "b", Type: "DIALOGUE", StartTime: 2}))
	require.NoError(t, s.Insert(ctx, core.Event{ID: "c", Type: "POLICY", StartTime: 3}))

	policies, err := s.List(ctx, core.EventFilter{Type: "POLICY"})
	require.NoError(t, err)
	require.Len(t, policies, 2)
	assert.Equal(t, "c", policies[0].ID)

	paged, err := s.List(ctx, core.EventFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "b", paged[0].ID)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Description)
	assert.NotEmpty(t, got.CreatedAt)

	require.NoError(t, s.Clear(ctx))
	all, err := s.List(ctx, core.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestEventStore_UpsertByID(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t).Events()
	ev := core.Event{ID: "e1", Type: "GIFT", StartTime: 10, AffectedAgents: []string{"1", "2"}}
	require.NoError(t, s.Insert(ctx, ev))
	require.NoError(t, s.Insert(ctx, ev))

	all, err := s.List(ctx, core.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemoryStore_ListNewestFirstAndPaged(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t).Memories()
	require.NoError(t, s.Insert(ctx, core.Memory{ID: "m1", AgentID: "a", Timestamp: 1}))
	require.NoError(t, s.Insert(ctx, core.Memory{ID: "m2", AgentID: "a", Timestamp: 3}))
	require.NoError(t, s.Insert(ctx, core.Memory{ID: "m3", AgentID: "a", Timestamp: 2}))
	require.NoError(t, s.Insert(ctx, core.Memory{ID: "m4", AgentID: "b", Timestamp: 9}))

	got, err := s.ListByAgent(ctx, "a", 2, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m2", got[0].ID)
	assert.Equal(t, "m3", got[1].ID)

	all, err := s.ListByAgent(ctx, "a", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ok, err := s.Delete(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_UpsertDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t).Memories()
	m := core.Memory{ID: "ev1-a", AgentID: "a", Content: "v1", Timestamp: 1}
	require.NoError(t, s.Insert(ctx, m))
	m.Content = "v2"
	require.NoError(t, s.Insert(ctx, m))

	got, err := s.ListByAgent(ctx, "a", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "v2", got[0].Content)
}

func TestSimilarity_RanksByCosine(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	memories := db.Memories()

	near := core.CanonicalEmbedding([]float64{1, 0})
	far := core.CanonicalEmbedding([]float64{0, 1})
	require.NoError(t, memories.Insert(ctx, core.Memory{ID: "near", AgentID: "a", Embedding: near, Timestamp: 1}))
	require.NoError(t, memories.Insert(ctx, core.Memory{ID: "far", AgentID: "a", Embedding: far, Timestamp: 2}))
	require.NoError(t, memories.Insert(ctx, core.Memory{ID: "none", AgentID: "a", Timestamp: 3}))

	got, err := memories.SimilarMemories(ctx, core.CanonicalEmbedding([]float64{0.9, 0.1}), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].ID)
}
