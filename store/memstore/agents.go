package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/townlet-ai/townlet/core"
)

// AgentStore is a volatile core.AgentStore keeping the roster in a map.
type AgentStore struct {
	mu     sync.RWMutex
	agents map[string]core.Agent
	order  []string
}

// NewAgentStore constructs an empty in-memory agent store.
func NewAgentStore() *AgentStore {
	return &AgentStore{agents: make(map[string]core.Agent)}
}

// List returns all agents in insertion order.
func (s *AgentStore) List(context.Context) ([]core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Agent, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.agents[id].Clone())
	}
	return out, nil
}

// Get returns a copy of one agent or core.ErrNotFound.
func (s *AgentStore) Get(_ context.Context, id string) (*core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	c := a.Clone()
	return &c, nil
}

// Insert upserts an agent by id.
func (s *AgentStore) Insert(_ context.Context, agent core.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[agent.ID]; !ok {
		s.order = append(s.order, agent.ID)
	}
	s.agents[agent.ID] = agent.Clone()
	return nil
}

// Update applies fn to the stored agent under the write lock.
func (s *AgentStore) Update(_ context.Context, id string, fn func(*core.Agent)) (*core.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	c := a.Clone()
	fn(&c)
	c.ID = id // id is immutable
	s.agents[id] = c
	out := c.Clone()
	return &out, nil
}

// Delete removes an agent, reporting whether it existed.
func (s *AgentStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; !ok {
		return false, nil
	}
	delete(s.agents, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// SimilarAgents returns up to topK agents ranked by cosine similarity of
// their stored embeddings to the query vector.
func (s *AgentStore) SimilarAgents(_ context.Context, embedding []float64, topK int) ([]core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type scored struct {
		agent core.Agent
		score float64
	}
	candidates := make([]scored, 0, len(s.agents))
	for _, a := range s.agents {
		if len(a.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{a.Clone(), core.CosineSimilarity(embedding, a.Embedding)})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if topK < len(candidates) {
		candidates = candidates[:topK]
	}
	out := make([]core.Agent, len(candidates))
	for i, c := range candidates {
		out[i] = c.agent
	}
	return out, nil
}
