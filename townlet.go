// Package townlet provides a high-level façade over the simulation engine
// and scheduler, enabling rapid construction of an LLM-driven resident
// simulation. Most applications interact with this package by:
//  1. Creating a Town via New() (optionally overriding stores, oracle, config)
//  2. Seeding the roster (Seed) and starting the scheduler (Start)
//  3. Driving residents manually (Decide) or ingesting events (AddEvent)
//
// The façade delegates event propagation to engine.Engine and the tick loop
// to scheduler.Scheduler. All defaults are safe for local development and
// testing; production deployments typically supply the SQLite stores, a real
// oracle adapter and a structured logger.
package townlet

import (
	"context"
	"time"

	"github.com/townlet-ai/townlet/config"
	"github.com/townlet-ai/townlet/core"
	"github.com/townlet-ai/townlet/engine"
	"github.com/townlet-ai/townlet/logging"
	"github.com/townlet-ai/townlet/scheduler"
	"github.com/townlet-ai/townlet/store/memstore"
)

// Options configures the Town instance.
type Options struct {
	// Config supplies the roster presets, authority persona and tick
	// interval (defaults to the built-in town).
	Config *config.Config

	// Oracle is the completion/embedding backend. Without one the town
	// still runs: ticks fall back to a static ambient event and manual
	// decisions surface core.ErrOracleUnavailable.
	Oracle core.Oracle

	// Stores (default to in-memory implementations if not provided).
	AgentStore  core.AgentStore
	EventStore  core.EventStore
	MemoryStore core.MemoryStore

	// TickTimeout bounds the oracle work of one scheduler tick. Zero
	// disables the bound.
	TickTimeout time.Duration

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Town is the high-level façade aggregating the engine, scheduler and
// stores.
type Town struct {
	opts      Options
	engine    *engine.Engine
	scheduler *scheduler.Scheduler
}

// New creates a Town with optional overrides. Any unset store is initialized
// with an in-memory implementation.
func New(optFns ...func(o *Options)) *Town {
	opts := Options{
		Config:      config.Default(),
		AgentStore:  memstore.NewAgentStore(),
		EventStore:  memstore.NewEventStore(),
		MemoryStore: memstore.NewMemoryStore(),
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	eng := engine.New(opts.AgentStore, opts.EventStore, opts.MemoryStore, func(o *engine.Options) {
		o.Oracle = opts.Oracle
		o.Authority = opts.Config.Authority
		o.Logger = opts.Logger
	})
	sched := scheduler.New(eng, opts.AgentStore, opts.EventStore, func(o *scheduler.Options) {
		o.Interval = opts.Config.TickInterval
		o.TickTimeout = opts.TickTimeout
		o.Logger = opts.Logger
	})
	return &Town{opts: opts, engine: eng, scheduler: sched}
}

// Seed inserts the configured roster when the agent store is empty.
func (t *Town) Seed(ctx context.Context) error {
	return t.engine.SeedAgents(ctx, t.opts.Config.Agents)
}

// Start moves the scheduler to running; a no-op while already running.
func (t *Town) Start() { t.scheduler.Start() }

// Pause suspends ticking.
func (t *Town) Pause() { t.scheduler.Pause() }

// Reset returns the scheduler to idle and clears the event log.
func (t *Town) Reset(ctx context.Context) error { return t.scheduler.Reset(ctx) }

// Close terminates the background worker; used on shutdown.
func (t *Town) Close() { t.scheduler.Close() }

// Status snapshots the scheduler state plus roster and event-log sizes.
func (t *Town) Status(ctx context.Context) (scheduler.Info, error) {
	return t.scheduler.Info(ctx)
}

// AddEvent ingests an event and applies its side effects.
func (t *Town) AddEvent(ctx context.Context, event core.Event) (core.Event, error) {
	return t.engine.AddEvent(ctx, event)
}

// Decide runs the full decision pipeline for one agent, with an optional
// extra instruction appended to the prompt.
func (t *Town) Decide(ctx context.Context, agentID, extra string) (*engine.Decision, error) {
	return t.engine.Decide(ctx, agentID, extra)
}

// React runs the reaction pipeline for one agent against a specific event.
func (t *Town) React(ctx context.Context, agentID string, event core.Event) (*engine.Decision, error) {
	return t.engine.React(ctx, agentID, event)
}

// GenerateEvent asks the town authority for a new world event and persists
// it.
func (t *Town) GenerateEvent(ctx context.Context) (core.Event, error) {
	return t.engine.GenerateEvent(ctx)
}

// Events lists the event log; transient store failures are retried and
// degrade to an empty listing.
func (t *Town) Events(ctx context.Context, filter core.EventFilter) []core.Event {
	return t.engine.Events(ctx, filter)
}

// AgentLog returns every event that touched one agent, oldest first.
func (t *Town) AgentLog(ctx context.Context, agentID string) []core.Event {
	return t.engine.AgentLog(ctx, agentID)
}

// Agents exposes the agent store for CRUD from the host application.
func (t *Town) Agents() core.AgentStore { return t.opts.AgentStore }

// Memories exposes the memory store.
func (t *Town) Memories() core.MemoryStore { return t.opts.MemoryStore }
