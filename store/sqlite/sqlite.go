// Package sqlite provides durable SQLite-backed implementations of the
// agent, event and memory stores. Records are stored as JSON documents with
// the filterable fields mirrored into indexed columns; vector similarity is
// computed in-process over the stored embeddings.
package sqlite

import (
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/townlet-ai/townlet/core"
)

// DB wraps a SQLite connection shared by the three stores.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		doc TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		start_time INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		doc TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		doc TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	CREATE INDEX IF NOT EXISTS idx_events_start_time ON events(start_time);
	CREATE INDEX IF NOT EXISTS idx_memories_agent ON memories(agent_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Agents returns the agent store view.
func (db *DB) Agents() *AgentStore { return &AgentStore{conn: db.conn} }

// Events returns the event store view.
func (db *DB) Events() *EventStore { return &EventStore{conn: db.conn} }

// Memories returns the memory store view.
func (db *DB) Memories() *MemoryStore { return &MemoryStore{conn: db.conn} }

// topKByCosine ranks candidates by embedding similarity and truncates to
// topK. Records without an embedding never rank.
func topKByCosine[T any](embedding []float64, items []T, vec func(T) []float64, topK int) []T {
	type scored struct {
		item  T
		score float64
	}
	candidates := make([]scored, 0, len(items))
	for _, it := range items {
		v := vec(it)
		if len(v) == 0 {
			continue
		}
		candidates = append(candidates, scored{it, core.CosineSimilarity(embedding, v)})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if topK < len(candidates) {
		candidates = candidates[:topK]
	}
	out := make([]T, len(candidates))
	for i, c := range candidates {
		out[i] = c.item
	}
	return out
}
