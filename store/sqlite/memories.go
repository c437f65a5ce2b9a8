package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/townlet-ai/townlet/core"
)

// MemoryStore is the durable core.MemoryStore.
type MemoryStore struct {
	conn *sqlx.DB
}

// ListByAgent returns one agent's memories newest-first, paged. A limit of
// zero or less means no cap.
func (s *MemoryStore) ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]core.Memory, error) {
	if limit <= 0 {
		limit = -1 // SQLite: LIMIT -1 is unbounded
	}
	var docs []string
	err := s.conn.SelectContext(ctx, &docs,
		"SELECT doc FROM memories WHERE agent_id = ? ORDER BY timestamp DESC LIMIT ? OFFSET ?",
		agentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list memories for agent %s: %w", agentID, err)
	}
	memories := make([]core.Memory, 0, len(docs))
	for _, doc := range docs {
		var m core.Memory
		if err := json.Unmarshal([]byte(doc), &m); err != nil {
			return nil, fmt.Errorf("decode memory row: %w", err)
		}
		memories = append(memories, m)
	}
	return memories, nil
}

// Insert upserts a memory by id.
func (s *MemoryStore) Insert(ctx context.Context, memory core.Memory) error {
	doc, err := json.Marshal(memory)
	if err != nil {
		return fmt.Errorf("encode memory %s: %w", memory.ID, err)
	}
	_, err = s.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO memories (id, agent_id, timestamp, doc) VALUES (?, ?, ?, ?)",
		memory.ID, memory.AgentID, memory.Timestamp, string(doc))
	if err != nil {
		return fmt.Errorf("insert memory %s: %w", memory.ID, err)
	}
	return nil
}

// Delete removes a memory, reporting whether it existed.
func (s *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.conn.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete memory %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SimilarMemories ranks stored memories by embedding similarity across the
// whole population.
func (s *MemoryStore) SimilarMemories(ctx context.Context, embedding []float64, topK int) ([]core.Memory, error) {
	var docs []string
	if err := s.conn.SelectContext(ctx, &docs, "SELECT doc FROM memories"); err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	memories := make([]core.Memory, 0, len(docs))
	for _, doc := range docs {
		var m core.Memory
		if err := json.Unmarshal([]byte(doc), &m); err != nil {
			return nil, fmt.Errorf("decode memory row: %w", err)
		}
		memories = append(memories, m)
	}
	return topKByCosine(embedding, memories, func(m core.Memory) []float64 { return m.Embedding }, topK), nil
}
