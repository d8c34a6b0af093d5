package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelOutputWellFormed(t *testing.T) {
	raw := `{"reply": "Записать вас на маникюр?", "action": {"type": "propose_service", "service_id": "svc-1", "service_name": "Маникюр"}}`
	out, err := ParseModelOutput(raw)
	require.NoError(t, err)
	assert.Equal(t, "Записать вас на маникюр?", out.Reply)
	require.NotNil(t, out.Action)
	assert.Equal(t, ActionProposeService, out.Action.Type)
	assert.Equal(t, "svc-1", out.Action.ServiceID)
}

func TestParseModelOutputReplyOnly(t *testing.T) {
	out, err := ParseModelOutput(`{"reply": "Мы работаем с 10 до 21."}`)
	require.NoError(t, err)
	assert.Equal(t, "Мы работаем с 10 до 21.", out.Reply)
	assert.Nil(t, out.Action)
}

func TestParseModelOutputStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"reply\": \"Ок\", \"action\": {\"type\": \"cancel\"}}\n```"
	out, err := ParseModelOutput(raw)
	require.NoError(t, err)
	require.NotNil(t, out.Action)
	assert.Equal(t, ActionCancel, out.Action.Type)
}

func TestParseModelOutputUnknownActionType(t *testing.T) {
	out, err := ParseModelOutput(`{"reply": "Сейчас", "action": {"type": "teleport_client"}}`)
	require.NoError(t, err)
	require.NotNil(t, out.Action)
	assert.Equal(t, ActionUnrecognized, out.Action.Type)
}

func TestParseModelOutputMalformed(t *testing.T) {
	_, err := ParseModelOutput("извините, вот ваш ответ без JSON")
	require.Error(t, err)

	_, err = ParseModelOutput(`{"reply": `)
	require.Error(t, err)
}
