package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/townlet-ai/townlet/core"
)

func TestDecodeEvent_CamelCaseWireForm(t *testing.T) {
	raw := `{
		"type": "POLICY",
		"description": "medical tax raised to 0.5",
		"affectedAgents": ["1", "2"],
		"startTime": 1718000000000,
		"duration": 300000,
		"impact": {"mood": -5},
		"meta": {"tax": {"kind": "medical", "rate": 0.5}},
		"scope": "global"
	}`
	ev, err := DecodeEvent([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, core.EventPolicy, ev.Type)
	assert.Equal(t, []string{"1", "2"}, ev.AffectedAgents)
	assert.Equal(t, int64(1718000000000), ev.StartTime)
	assert.Equal(t, -5, ev.Impact["mood"])
	assert.Equal(t, "global", ev.Scope)
}

func TestDecodeEvent_FencedPayload(t *testing.T) {
	raw := "Here is the event:\n```json\n{\"type\": \"DIALOGUE\", \"description\": \"a chat\", \"from_agent\": \"1\", \"to_agent\": \"2\", \"content\": \"hi\"}\n```"
	ev, err := DecodeEvent([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, core.EventDialogue, ev.Type)
	assert.True(t, ev.Directed())
}

func TestDecodeEvent_MissingRequiredFields(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"description": "no type"}`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{"type": "POLICY"}`))
	assert.Error(t, err)
}

func TestDecodeEvent_NotJSON(t *testing.T) {
	_, err := DecodeEvent([]byte("I could not come up with an event today."))
	assert.Error(t, err)
}

func TestValidateEvent_RejectsWrongTypes(t *testing.T) {
	err := ValidateEvent([]byte(`{"type": "POLICY", "description": "x", "duration": "soon"}`))
	assert.Error(t, err)
}

func TestDecodeEvent_MalformedAffectedAgentsCoerced(t *testing.T) {
	raw := `{"type": "LLM", "description": "odd payload", "affectedAgents": "everyone"}`
	ev, err := DecodeEvent([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{}, ev.AffectedAgents)
}
