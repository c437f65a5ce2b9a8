package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/townlet-ai/townlet/core"
)

// AgentStore is the durable core.AgentStore.
type AgentStore struct {
	conn *sqlx.DB
}

// List returns the full roster in insertion order.
func (s *AgentStore) List(ctx context.Context) ([]core.Agent, error) {
	var docs []string
	if err := s.conn.SelectContext(ctx, &docs, "SELECT doc FROM agents ORDER BY rowid"); err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	agents := make([]core.Agent, 0, len(docs))
	for _, doc := range docs {
		var a core.Agent
		if err := json.Unmarshal([]byte(doc), &a); err != nil {
			return nil, fmt.Errorf("decode agent row: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, nil
}

// Get returns one agent or core.ErrNotFound.
func (s *AgentStore) Get(ctx context.Context, id string) (*core.Agent, error) {
	var doc string
	err := s.conn.GetContext(ctx, &doc, "SELECT doc FROM agents WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	var a core.Agent
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		return nil, fmt.Errorf("decode agent %s: %w", id, err)
	}
	return &a, nil
}

// Insert upserts an agent by id.
func (s *AgentStore) Insert(ctx context.Context, agent core.Agent) error {
	doc, err := json.Marshal(agent)
	if err != nil {
		return fmt.Errorf("encode agent %s: %w", agent.ID, err)
	}
	_, err = s.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO agents (id, doc) VALUES (?, ?)", agent.ID, string(doc))
	if err != nil {
		return fmt.Errorf("insert agent %s: %w", agent.ID, err)
	}
	return nil
}

// Update applies fn to the stored record inside a transaction, so
// concurrent updates to the same agent serialize on the row.
func (s *AgentStore) Update(ctx context.Context, id string, fn func(*core.Agent)) (*core.Agent, error) {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update agent %s: %w", id, err)
	}
	defer tx.Rollback()

	var doc string
	err = tx.GetContext(ctx, &doc, "SELECT doc FROM agents WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update agent %s: %w", id, err)
	}
	var a core.Agent
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		return nil, fmt.Errorf("decode agent %s: %w", id, err)
	}
	fn(&a)
	a.ID = id
	updated, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode agent %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE agents SET doc = ? WHERE id = ?", string(updated), id); err != nil {
		return nil, fmt.Errorf("update agent %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update agent %s: %w", id, err)
	}
	return &a, nil
}

// Delete removes an agent, reporting whether it existed.
func (s *AgentStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.conn.ExecContext(ctx, "DELETE FROM agents WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete agent %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SimilarAgents ranks the roster by embedding similarity.
func (s *AgentStore) SimilarAgents(ctx context.Context, embedding []float64, topK int) ([]core.Agent, error) {
	agents, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return topKByCosine(embedding, agents, func(a core.Agent) []float64 { return a.Embedding }, topK), nil
}
