package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/townlet-ai/townlet/core"
	"github.com/townlet-ai/townlet/engine"
	"github.com/townlet-ai/townlet/internal/testutil"
	"github.com/townlet-ai/townlet/store/memstore"
)

type fixture struct {
	scheduler *Scheduler
	agents    *memstore.AgentStore
	events    *memstore.EventStore
	memories  *memstore.MemoryStore
	oracle    *core.MockOracle
}

func newFixture(t *testing.T, withOracle bool) *fixture {
	t.Helper()
	f := &fixture{
		agents:   memstore.NewAgentStore(),
		events:   memstore.NewEventStore(),
		memories: memstore.NewMemoryStore(),
	}
	ctx := context.Background()
	require.NoError(t, f.agents.Insert(ctx, testutil.NewAgentBuilder("1", "Lin Fang").Build()))
	require.NoError(t, f.agents.Insert(ctx, testutil.NewAgentBuilder("2", "Wang Wei").Build()))

	var engOpts []func(o *engine.Options)
	if withOracle {
		f.oracle = core.NewMockOracle()
		engOpts = append(engOpts, func(o *engine.Options) { o.Oracle = f.oracle })
	}
	eng := engine.New(f.agents, f.events, f.memories, engOpts...)
	f.scheduler = New(eng, f.agents, f.events, func(o *Options) {
		o.Interval = 20 * time.Millisecond
		o.Poll = 5 * time.Millisecond
	})
	t.Cleanup(f.scheduler.Close)
	return f
}

func TestStateMachine(t *testing.T) {
	f := newFixture(t, false)
	s := f.scheduler

	assert.Equal(t, StatusIdle, s.Status())

	s.Start()
	assert.Equal(t, StatusRunning, s.Status())

	// Start while running is a no-op and must not spawn a second worker.
	s.Start()
	assert.Equal(t, StatusRunning, s.Status())
	s.mu.Lock()
	assert.True(t, s.alive)
	s.mu.Unlock()

	s.Pause()
	assert.Equal(t, StatusPaused, s.Status())

	s.Start()
	assert.Equal(t, StatusRunning, s.Status())

	require.NoError(t, s.Reset(context.Background()))
	assert.Equal(t, StatusIdle, s.Status())
}

func TestPauseFromIdleIsNoOp(t *testing.T) {
	f := newFixture(t, false)
	f.scheduler.Pause()
	assert.Equal(t, StatusIdle, f.scheduler.Status())
}

func TestResetClearsEventLog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	require.NoError(t, f.events.Insert(ctx, core.Event{ID: "e1", StartTime: 1}))

	f.scheduler.Start()
	require.NoError(t, f.scheduler.Reset(ctx))

	events, err := f.events.List(ctx, core.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, StatusIdle, f.scheduler.Status())
}

func TestTick_FallbackEventWithoutOracle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	f.scheduler.Start()
	require.Eventually(t, func() bool {
		events, err := f.events.List(ctx, core.EventFilter{})
		return err == nil && len(events) > 0
	}, 2*time.Second, 10*time.Millisecond)
	f.scheduler.Pause()

	events, err := f.events.List(ctx, core.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, core.EventEnvironmental, events[0].Type)
	assert.ElementsMatch(t, []string{"1", "2"}, events[0].AffectedAgents)

	a, err := f.agents.Get(ctx, "1")
	require.NoError(t, err)
	assert.Greater(t, a.Attributes.Mood, 50)
}

func TestTick_GeneratesAndFansOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.oracle.AddResponseContains("Titan",
		`{"type": "ENVIRONMENTAL", "description": "a market opens", "affectedAgents": ["1", "2"]}`)
	f.oracle.AddResponseContains("React to this event", "I will go have a look.\n[]")

	f.scheduler.Start()
	require.Eventually(t, func() bool {
		mems, err := f.memories.ListByAgent(ctx, "1", 0, 0)
		if err != nil {
			return false
		}
		for _, m := range mems {
			if m.Type == core.MemoryLLMResponse {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	f.scheduler.Pause()

	mems, err := f.memories.ListByAgent(ctx, "1", 0, 0)
	require.NoError(t, err)
	var types []string
	for _, m := range mems {
		types = append(types, m.Type)
	}
	assert.Contains(t, types, core.MemoryEvent)
	assert.Contains(t, types, core.MemoryLLMResponse)
}

func TestInfo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	require.NoError(t, f.events.Insert(ctx, core.Event{ID: "e1", StartTime: 1}))

	info, err := f.scheduler.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, info.Status)
	assert.Equal(t, 2, info.Agents)
	assert.Equal(t, 1, info.Events)
}
