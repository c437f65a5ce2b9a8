package memstore

import (
	"context"
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

func TestAgentStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewAgentStore()

	require.NoError(t, s.Insert(ctx, core.Agent{ID: "1", Name: "Nora"}))
	require.NoError(t, s.Insert(ctx, core.Agent{ID: "2", Name: "Wade"}))

	got, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Nora", got.Name)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	updated, err := s.Update(ctx, "1", func(a *core.Agent) { a.State = "WORKING" })
	require.NoError(t, err)
	assert.Equal(t, "WORKING", updated.State)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Nora", all[0].Name)

	ok, err := s.Delete(ctx, "2")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Delete(ctx, "2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAgentStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewAgentStore()
	require.NoError(t, s.Insert(ctx, core.Agent{ID: "1", Relationships: map[string]core.Relationship{}}))

	got, err := s.Get(ctx, "1")
	require.NoError(t, err)
	got.Relationships["x"] = core.Relationship{Affinity: 9}

	again, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, again.Relationships)
}

func TestEventStore_UpsertByID(t *testing.T) {
	ctx := context.Background()
	s := NewEventStore()
	ev := core.Event{ID: "e1", Type: "POLICY", Description: "first", StartTime: 10}
	require.NoError(t, s.Insert(ctx, ev))
	require.NoError(t, s.Insert(ctx, ev))

	all, err := s.List(ctx, core.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.NotEmpty(t, all[0].CreatedAt)
}

func TestEventStore_ListFilterAndPaging(t *testing.T) {
	ctx := context.Background()
	s := NewEventStore()
	require.NoError(t, s.Insert(ctx, core.Event{ID: "a", Type: "POLICY", StartTime: 1}))
	require.NoError(t, s.Insert(ctx, core.Event{ID: "b", Type: "DIALOGUE", StartTime: 2}))
	require.NoError(t, s.Insert(ctx, core.Event{ID: "c", Type: "POLICY", StartTime: 3}))

	policies, err := s.List(ctx, core.EventFilter{Type: "POLICY"})
	require.NoError(t, err)
	require.Len(t, policies, 2)
	// Newest first.
	assert.Equal(t, "c", policies[0].ID)

	paged, err := s.List(ctx, core.EventFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "b", paged[0].ID)
}

func TestEventStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := NewEventStore()
	require.NoError(t, s.Insert(ctx, core.Event{ID: "a", StartTime: 1}))
	require.NoError(t, s.Clear(ctx))
	all, err := s.List(ctx, core.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Insert(ctx, core.Memory{ID: "m1", AgentID: "a", Timestamp: 1}))
	require.NoError(t, s.Insert(ctx, core.Memory{ID: "m2", AgentID: "a", Timestamp: 3}))
	require.NoError(t, s.Insert(ctx, core.Memory{ID: "m3", AgentID: "a", Timestamp: 2}))
	require.NoError(t, s.Insert(ctx, core.Memory{ID: "m4", AgentID: "b", Timestamp: 9}))

	got, err := s.ListByAgent(ctx, "a", 2, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m2", got[0].ID)
	assert.Equal(t, "m3", got[1].ID)
}

func TestMemoryStore_UpsertDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	m := core.Memory{ID: "ev1-a", AgentID: "a", Content: "v1", Timestamp: 1}
	require.NoError(t, s.Insert(ctx, m))
	m.Content = "v2"
	require.NoError(t, s.Insert(ctx, m))

	got, err := s.ListByAgent(ctx, "a", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "v2", got[0].Content)
}

func TestSimilarMemories_RanksByCosine(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	near := core.CanonicalEmbedding([]float64{1, 0})
	far := core.CanonicalEmbedding([]float64{0, 1})
	require.NoError(t, s.Insert(ctx, core.Memory{ID: "near", AgentID: "a", Embedding: near}))
	require.NoError(t, s.Insert(ctx, core.Memory{ID: "far", AgentID: "a", Embedding: far}))
	require.NoError(t, s.Insert(ctx, core.Memory{ID: "none", AgentID: "a"}))

	got, err := s.SimilarMemories(ctx, core.CanonicalEmbedding([]float64{0.9, 0.1}), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].ID)
}
