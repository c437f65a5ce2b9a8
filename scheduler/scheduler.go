// Package scheduler drives the simulation: a single background worker that,
// while running, periodically asks the engine for a new world event and fans
// reactions out to the affected agents. Control operations move the
// scheduler through idle → running ⇄ paused; reset returns to idle and
// clears the event log.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/townlet-ai/townlet/core"
	"github.com/townlet-ai/townlet/engine"
	"github.com/townlet-ai/townlet/logging"
)

// Status enumerates the scheduler states.
type Status string

// Scheduler states.
const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
)

// Info is the control-surface status snapshot.
type Info struct {
	Status Status `json:"status"`
	Agents int    `json:"agents"`
	Events int    `json:"events"`
}

// Scheduler owns the background tick loop. Only one worker is ever alive;
// Start while running is a no-op and Start after a reset reuses the worker
// if it is still polling.
type Scheduler struct {
	engine *engine.Engine
	agents core.AgentStore
	events core.EventStore
	logger logging.Logger

	interval    time.Duration
	poll        time.Duration
	tickTimeout time.Duration

	mu     sync.Mutex
	status Status
	alive  bool
	stop   chan struct{}

	ticks atomic.Int64
}

// Options configure a Scheduler.
type Options struct {
	// Interval between ticks while running.
	Interval time.Duration
	// Poll is how often an idle or paused worker re-checks the status.
	Poll time.Duration
	// TickTimeout bounds the oracle work of one tick. Zero means no
	// timeout; a stalled oracle call then stalls the tick indefinitely.
	TickTimeout time.Duration
	Logger      logging.Logger
}

// New constructs an idle Scheduler around an engine and its stores.
func New(eng *engine.Engine, agents core.AgentStore, events core.EventStore, optFns ...func(o *Options)) *Scheduler {
	opts := Options{
		Interval: time.Minute,
		Poll:     time.Second,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Scheduler{
		engine:   eng,
		agents:   agents,
		events:   events,
		logger:   opts.Logger,
		interval: opts.Interval,
		poll:     opts.Poll,
		// Non-positive tick timeout disables the bound.
		tickTimeout: opts.TickTimeout,
		status:      StatusIdle,
	}
}

// Start moves the scheduler to running. A no-op while already running; from
// paused it resumes the existing worker; from idle it spawns the worker if
// none is alive. The first tick fires immediately after the transition.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusRunning {
		return
	}
	s.status = StatusRunning
	if s.alive {
		return
	}
	s.alive = true
	s.stop = make(chan struct{})
	go s.loop(s.stop)
	s.logger.Info("scheduler started")
}

// Pause suspends ticking; the worker keeps polling.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusRunning {
		s.status = StatusPaused
		s.logger.Info("scheduler paused")
	}
}

// Reset returns to idle from any state and clears the event log. An
// in-flight oracle call is not interrupted; its result is discarded because
// the loop re-checks the status before reacting agents.
func (s *Scheduler) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.status = StatusIdle
	s.mu.Unlock()
	if err := s.events.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("scheduler reset, event log cleared")
	return nil
}

// Close terminates the background worker. The scheduler cannot be restarted
// afterwards; processes use it on shutdown only.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.alive {
		close(s.stop)
		s.alive = false
		s.status = StatusIdle
	}
}

// Status returns the current state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Info snapshots the status plus roster and event-log sizes.
func (s *Scheduler) Info(ctx context.Context) (Info, error) {
	agents, err := s.agents.List(ctx)
	if err != nil {
		return Info{}, err
	}
	events, err := s.events.List(ctx, core.EventFilter{Limit: 10_000})
	if err != nil {
		return Info{}, err
	}
	return Info{Status: s.Status(), Agents: len(agents), Events: len(events)}, nil
}

func (s *Scheduler) loop(stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		if s.Status() != StatusRunning {
			select {
			case <-stop:
				return
			case <-time.After(s.poll):
			}
			continue
		}
		s.runTick()
		select {
		case <-stop:
			return
		case <-time.After(s.interval):
		}
	}
}

// runTick generates one world event and reacts every affected agent,
// sequentially, swallowing per-agent failures. Without a configured oracle
// the tick falls back to a static ambient event so the town keeps moving.
func (s *Scheduler) runTick() {
	start := time.Now()
	tick := s.ticks.Add(1)

	ctx := context.Background()
	if s.tickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.tickTimeout)
		defer cancel()
	}

	react := true
	event, err := s.engine.GenerateEvent(ctx)
	if errors.Is(err, core.ErrOracleUnavailable) {
		event, err = s.fallbackEvent(ctx)
		react = false
	}
	if err != nil {
		s.logger.Error("tick event generation failed", "tick", tick, "error", err)
		return
	}

	reacted := 0
	if react {
		for _, agentID := range event.AffectedAgents {
			// A reset or pause mid-tick discards the remaining fan-out.
			if s.Status() != StatusRunning {
				break
			}
			if _, err := s.engine.React(ctx, agentID, event); err != nil {
				s.logger.Warn("agent reaction failed", "tick", tick, "agent_id", agentID, "error", err)
				continue
			}
			reacted++
		}
	}
	s.logTick(tick, event.ID, reacted, time.Since(start))
}

// fallbackEvent writes the static ambient event used when no oracle is
// configured: the whole town gets a small mood lift.
func (s *Scheduler) fallbackEvent(ctx context.Context) (core.Event, error) {
	agents, err := s.agents.List(ctx)
	if err != nil {
		return core.Event{}, err
	}
	ids := make([]string, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
	}
	return s.engine.AddEvent(ctx, core.Event{
		Type:           core.EventEnvironmental,
		Description:    "A calm, ordinary stretch of the day passes in the town.",
		AffectedAgents: ids,
		StartTime:      core.NowMillis(),
		Duration:       int64(s.interval / time.Millisecond),
		Impact:         map[string]int{"mood": 1},
	})
}

type tickLogger interface {
	LogTick(tick int64, eventID string, reacted int, dur time.Duration)
}

func (s *Scheduler) logTick(tick int64, eventID string, reacted int, dur time.Duration) {
	if tl, ok := s.logger.(tickLogger); ok {
		tl.LogTick(tick, eventID, reacted, dur)
		return
	}
	s.logger.Info("tick completed",
		"tick", tick, "event_id", eventID, "reacted_agents", reacted, "duration", dur)
}
