package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/townlet-ai/townlet/core"
)

// defaultListLimit caps unbounded event listings, matching the in-memory
// store.
const defaultListLimit = 50

// EventStore is the durable core.EventStore.
type EventStore struct {
	conn *sqlx.DB
}

// List returns events newest-first, filtered by type and paged.
func (s *EventStore) List(ctx context.Context, filter core.EventFilter) ([]core.Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := "SELECT doc FROM events"
	args := []any{}
	if filter.Type != "" {
		query += " WHERE type = ?"
		args = append(args, filter.Type)
	}
	query += " ORDER BY start_time DESC LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	var docs []string
	if err := s.conn.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events := make([]core.Event, 0, len(docs))
	for _, doc := range docs {
		var e core.Event
		if err := json.Unmarshal([]byte(doc), &e); err != nil {
			return nil, fmt.Errorf("decode event row: %w", err)
		}
		events = append(events, e)
	}
	return events, nil
}

// Get returns one event or core.ErrNotFound.
func (s *EventStore) Get(ctx context.Context, id string) (*core.Event, error) {
	var doc string
	err := s.conn.GetContext(ctx, &doc, "SELECT doc FROM events WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	var e core.Event
	if err := json.Unmarshal([]byte(doc), &e); err != nil {
		return nil, fmt.Errorf("decode event %s: %w", id, err)
	}
	return &e, nil
}

// Insert upserts an event by id, stamping the display CreatedAt timestamp.
func (s *EventStore) Insert(ctx context.Context, event core.Event) error {
	if event.CreatedAt == "" {
		event.CreatedAt = time.Now().Format("2006-01-02 15:04:05")
	}
	doc, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	_, err = s.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO events (id, type, start_time, created_at, doc) VALUES (?, ?, ?, ?, ?)",
		event.ID, event.Type, event.StartTime, event.CreatedAt, string(doc))
	if err != nil {
		return fmt.Errorf("insert event %s: %w", event.ID, err)
	}
	return nil
}

// Delete removes an event, reporting whether it existed.
func (s *EventStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.conn.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete event %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear empties the event log.
func (s *EventStore) Clear(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM events"); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	return nil
}

// SimilarEvents ranks stored events by embedding similarity.
func (s *EventStore) SimilarEvents(ctx context.Context, embedding []float64, topK int) ([]core.Event, error) {
	var docs []string
	if err := s.conn.SelectContext(ctx, &docs, "SELECT doc FROM events"); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events := make([]core.Event, 0, len(docs))
	for _, doc := range docs {
		var e core.Event
		if err := json.Unmarshal([]byte(doc), &e); err != nil {
			return nil, fmt.Errorf("decode event row: %w", err)
		}
		events = append(events, e)
	}
	return topKByCosine(embedding, events, func(e core.Event) []float64 { return e.Embedding }, topK), nil
}
