package core

import "context"

// EventFilter narrows an event listing. Zero values mean "no constraint";
// a Limit of 0 lets the store apply its default cap.
type EventFilter struct {
	Type   string
	Limit  int
	Offset int
}

// AgentStore persists the agent roster. Insert is an upsert by id. Update
// applies fn to the current record under the store's consistency boundary
// and returns the mutated agent, or ErrNotFound.
type AgentStore interface {
	List(ctx context.Context) ([]Agent, error)
	Get(ctx context.Context, id string) (*Agent, error)
	Insert(ctx context.Context, agent Agent) error
	Update(ctx context.Context, id string, fn func(*Agent)) (*Agent, error)
	Delete(ctx context.Context, id string) (bool, error)
	SimilarAgents(ctx context.Context, embedding []float64, topK int) ([]Agent, error)
}

// EventStore persists the append-only event log. Insert is an upsert by id:
// resubmitting an already-stored event id is accepted and never duplicates
// the row. Clear empties the log (scheduler reset).
type EventStore interface {
	List(ctx context.Context, filter EventFilter) ([]Event, error)
	Get(ctx context.Context, id string) (*Event, error)
	Insert(ctx context.Context, event Event) error
	Delete(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context) error
	SimilarEvents(ctx context.Context, embedding []float64, topK int) ([]Event, error)
}

// MemoryStore persists per-agent memories. Insert is an upsert by id, which
// combined with deterministic memory ids makes event side effects
// idempotent. ListByAgent returns newest-first.
type MemoryStore interface {
	ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]Memory, error)
	Insert(ctx context.Context, memory Memory) error
	Delete(ctx context.Context, id string) (bool, error)
	SimilarMemories(ctx context.Context, embedding []float64, topK int) ([]Memory, error)
}
