package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/townlet-ai/townlet/core"
)

// MemoryStore is a volatile core.MemoryStore keyed by memory id with a
// per-agent index. Insert is an upsert: deterministic memory ids make event
// side effects idempotent.
type MemoryStore struct {
	mu       sync.RWMutex
	memories map[string]core.Memory
	byAgent  map[string][]string
}

// NewMemoryStore constructs an empty in-memory memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		memories: make(map[string]core.Memory),
		byAgent:  make(map[string][]string),
	}
}

func cloneMemory(m core.Memory) core.Memory {
	c := m
	if m.RelatedAgents != nil {
		c.RelatedAgents = append([]string(nil), m.RelatedAgents...)
	}
	if m.Tags != nil {
		c.Tags = append([]string(nil), m.Tags...)
	}
	if m.Embedding != nil {
		c.Embedding = append([]float64(nil), m.Embedding...)
	}
	return c
}

// ListByAgent returns one agent's memories newest-first, paged.
func (s *MemoryStore) ListByAgent(_ context.Context, agentID string, limit, offset int) ([]core.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byAgent[agentID]
	out := make([]core.Memory, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneMemory(s.memories[id]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if offset >= len(out) {
		return []core.Memory{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Insert upserts a memory by id.
func (s *MemoryStore) Insert(_ context.Context, memory core.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.memories[memory.ID]; ok {
		// Upsert: detach from the previous owner index if it moved.
		if prev.AgentID != memory.AgentID {
			s.detachLocked(prev.AgentID, memory.ID)
			s.byAgent[memory.AgentID] = append(s.byAgent[memory.AgentID], memory.ID)
		}
	} else {
		s.byAgent[memory.AgentID] = append(s.byAgent[memory.AgentID], memory.ID)
	}
	s.memories[memory.ID] = cloneMemory(memory)
	return nil
}

// Delete removes a memory, reporting whether it existed.
func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok {
		return false, nil
	}
	delete(s.memories, id)
	s.detachLocked(m.AgentID, id)
	return true, nil
}

func (s *MemoryStore) detachLocked(agentID, memoryID string) {
	ids := s.byAgent[agentID]
	for i, mid := range ids {
		if mid == memoryID {
			s.byAgent[agentID] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// SimilarMemories returns up to topK memories ranked by embedding
// similarity across the whole population.
func (s *MemoryStore) SimilarMemories(_ context.Context, embedding []float64, topK int) ([]core.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type scored struct {
		memory core.Memory
		score  float64
	}
	candidates := make([]scored, 0, len(s.memories))
	for _, m := range s.memories {
		if len(m.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{cloneMemory(m), core.CosineSimilarity(embedding, m.Embedding)})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if topK < len(candidates) {
		candidates = candidates[:topK]
	}
	out := make([]core.Memory, len(candidates))
	for i, c := range candidates {
		out[i] = c.memory
	}
	return out, nil
}
