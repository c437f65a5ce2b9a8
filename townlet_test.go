package townlet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/townlet-ai/townlet/core"
	"github.com/townlet-ai/townlet/scheduler"
)

func TestTown_DefaultsAndSeed(t *testing.T) {
	ctx := context.Background()
	town := New()
	defer town.Close()

	require.NoError(t, town.Seed(ctx))
	info, err := town.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, scheduler.StatusIdle, info.Status)
	assert.Equal(t, 4, info.Agents)
	assert.Equal(t, 0, info.Events)
}

func TestTown_AddEventAndLog(t *testing.T) {
	ctx := context.Background()
	town := New()
	defer town.Close()
	require.NoError(t, town.Seed(ctx))

	ev, err := town.AddEvent(ctx, core.Event{
		Type:           core.EventDialogue,
		Description:    "a morning greeting",
		FromAgent:      "1",
		ToAgent:        "2",
		Content:        "good morning",
		AffectedAgents: []string{"1", "2"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)

	log := town.AgentLog(ctx, "2")
	require.Len(t, log, 1)
	assert.Equal(t, ev.ID, log[0].ID)

	events := town.Events(ctx, core.EventFilter{})
	assert.Len(t, events, 1)
}

func TestTown_DecideWithoutOracle(t *testing.T) {
	ctx := context.Background()
	town := New()
	defer town.Close()
	require.NoError(t, town.Seed(ctx))

	_, err := town.Decide(ctx, "1", "")
	assert.ErrorIs(t, err, core.ErrOracleUnavailable)
}

func TestTown_DecideWithMockOracle(t *testing.T) {
	ctx := context.Background()
	oracle := core.NewMockOracle()
	oracle.AddResponseContains("Combine your memories",
		`[{"action": "MOVE", "target_position": [100, 100]}]`)

	town := New(func(o *Options) { o.Oracle = oracle })
	defer town.Close()
	require.NoError(t, town.Seed(ctx))

	decision, err := town.Decide(ctx, "1", "")
	require.NoError(t, err)
	require.Len(t, decision.Actions, 1)

	a, err := town.Agents().Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, core.Point{X: 100, Y: 100}, a.Position)
}
