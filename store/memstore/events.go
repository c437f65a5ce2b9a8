package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/townlet-ai/townlet/core"
)

// defaultListLimit caps unbounded event listings.
const defaultListLimit = 50

// EventStore is a volatile core.EventStore. Events are immutable once
// stored; Insert is an upsert by id so replays never duplicate rows.
type EventStore struct {
	mu     sync.RWMutex
	events map[string]core.Event
	order  []string
}

// NewEventStore constructs an empty in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{events: make(map[string]core.Event)}
}

func cloneEvent(e core.Event) core.Event {
	c := e
	c.AffectedAgents = append([]string(nil), e.AffectedAgents...)
	if e.Impact != nil {
		c.Impact = make(map[string]int, len(e.Impact))
		for k, v := range e.Impact {
			c.Impact[k] = v
		}
	}
	if e.Meta != nil {
		c.Meta = make(map[string]any, len(e.Meta))
		for k, v := range e.Meta {
			c.Meta[k] = v
		}
	}
	if e.Embedding != nil {
		c.Embedding = append([]float64(nil), e.Embedding...)
	}
	if e.Position != nil {
		p := *e.Position
		c.Position = &p
	}
	return c
}

// List returns events newest-first, filtered by type and paged.
func (s *EventStore) List(_ context.Context, filter core.EventFilter) ([]core.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]core.Event, 0, len(s.order))
	for _, id := range s.order {
		e := s.events[id]
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		all = append(all, cloneEvent(e))
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].StartTime > all[j].StartTime })

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if filter.Offset >= len(all) {
		return []core.Event{}, nil
	}
	all = all[filter.Offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Get returns a copy of one event or core.ErrNotFound.
func (s *EventStore) Get(_ context.Context, id string) (*core.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	c := cloneEvent(e)
	return &c, nil
}

// Insert upserts an event by id, stamping the display CreatedAt timestamp.
func (s *EventStore) Insert(_ context.Context, event core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.CreatedAt == "" {
		event.CreatedAt = time.Now().Format("2006-01-02 15:04:05")
	}
	if _, ok := s.events[event.ID]; !ok {
		s.order = append(s.order, event.ID)
	}
	s.events[event.ID] = cloneEvent(event)
	return nil
}

// Delete removes an event, reporting whether it existed.
func (s *EventStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return false, nil
	}
	delete(s.events, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Clear empties the event log.
func (s *EventStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]core.Event)
	s.order = nil
	return nil
}

// SimilarEvents returns up to topK events ranked by embedding similarity.
func (s *EventStore) SimilarEvents(_ context.Context, embedding []float64, topK int) ([]core.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type scored struct {
		event core.Event
		score float64
	}
	candidates := make([]scored, 0, len(s.events))
	for _, e := range s.events {
		if len(e.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{cloneEvent(e), core.CosineSimilarity(embedding, e.Embedding)})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if topK < len(candidates) {
		candidates = candidates[:topK]
	}
	out := make([]core.Event, len(candidates))
	for i, c := range candidates {
		out[i] = c.event
	}
	return out, nil
}
