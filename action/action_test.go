package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/townlet-ai/townlet/core"
)

func testResolver(ref string) (string, bool) {
	known := map[string]string{
		"Wang Wei": "2",
		"2":        "2",
		"Lin Fang": "1",
	}
	id, ok := known[ref]
	return id, ok
}

func TestParse_StrictJSON(t *testing.T) {
	p := NewParser(testResolver)
	plan := p.Parse(`[{"action": "MOVE", "target_position": [120, 200]}, {"action": "SPEAK", "target": "Wang Wei", "message": "hello"}]`)

	require.Len(t, plan, 2)
	assert.Equal(t, Move, plan[0].Kind)
	assert.Equal(t, core.Point{X: 120, Y: 200}, plan[0].TargetPosition)
	assert.Equal(t, Speak, plan[1].Kind)
	assert.Equal(t, "2", plan[1].TargetID)
	assert.Equal(t, "hello", plan[1].Message)
}

func TestParse_MoveClamped(t *testing.T) {
	p := NewParser(testResolver)
	plan := p.Parse(`[{"action": "MOVE", "target_position": [-50, 900]}]`)

	require.Len(t, plan, 1)
	assert.Equal(t, core.Point{X: 0, Y: 600}, plan[0].TargetPosition)
}

func TestParse_FencedAndEmbedded(t *testing.T) {
	p := NewParser(testResolver)
	text := "I think I should visit the shop.\n```json\n[{\"action\": \"gift\", \"target\": \"Wang Wei\", \"item\": \"apples\"}]\n```\nThat seems right."
	plan := p.Parse(text)

	require.Len(t, plan, 1)
	assert.Equal(t, Gift, plan[0].Kind)
	assert.Equal(t, "apples", plan[0].Item)
}

func TestParse_SingleObject(t *testing.T) {
	p := NewParser(testResolver)
	plan := p.Parse(`After some thought: {"action": "COOPERATE", "target": "2", "message": "let's fix the roof"}`)

	require.Len(t, plan, 1)
	assert.Equal(t, Cooperate, plan[0].Kind)
	assert.Equal(t, "2", plan[0].TargetID)
}

func TestParse_RegexMoveFallback(t *testing.T) {
	p := NewParser(testResolver)
	plan := p.Parse("I will head to the square.\nACTION: MOVE\nTARGET_POSITION: (300, 150)")

	require.Len(t, plan, 1)
	assert.Equal(t, Move, plan[0].Kind)
	assert.Equal(t, core.Point{X: 300, Y: 150}, plan[0].TargetPosition)
}

func TestParse_RegexMoveFallbackClamped(t *testing.T) {
	p := NewParser(testResolver)
	plan := p.Parse("ACTION: MOVE TARGET_POSITION: (-50, 900)")

	require.Len(t, plan, 1)
	assert.Equal(t, core.Point{X: 0, Y: 600}, plan[0].TargetPosition)
}

func TestParse_NarrativeYieldsEmptyPlan(t *testing.T) {
	p := NewParser(testResolver)
	plan := p.Parse("Today was a quiet day. I watered the plants and thought about the tax changes.")

	assert.NotNil(t, plan)
	assert.Empty(t, plan)
}

func TestParse_UnresolvedTargetDropped(t *testing.T) {
	p := NewParser(testResolver)
	plan := p.Parse(`[{"action": "SPEAK", "target": "Nobody", "message": "hi"}, {"action": "SPEAK", "target": "Lin Fang", "message": "hi"}]`)

	require.Len(t, plan, 1)
	assert.Equal(t, "1", plan[0].TargetID)
}

func TestParse_TalkAndInteractNormalizeToSpeak(t *testing.T) {
	p := NewParser(testResolver)
	plan := p.Parse(`[{"action": "talk", "target": "2"}, {"action": "INTERACT", "target": "2"}]`)

	require.Len(t, plan, 2)
	assert.Equal(t, Speak, plan[0].Kind)
	assert.Equal(t, Speak, plan[1].Kind)
}

func TestEventTypeMapping(t *testing.T) {
	assert.Equal(t, core.EventDialogue, Action{Kind: Speak}.EventType())
	assert.Equal(t, core.EventGift, Action{Kind: Gift}.EventType())
	assert.Equal(t, core.EventCooperation, Action{Kind: Cooperate}.EventType())
	assert.Equal(t, core.EventRequestHelp, Action{Kind: RequestHelp}.EventType())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "A gives bread to B", Action{Kind: Gift, Item: "bread"}.Describe("A", "B"))
	assert.Equal(t, "A gives a gift to B", Action{Kind: Gift}.Describe("A", "B"))
	assert.Equal(t, "A talks to B", Action{Kind: Speak}.Describe("A", "B"))
}
