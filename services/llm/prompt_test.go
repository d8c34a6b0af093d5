package llm

import (
	"testing"

	"github.com/ntolkachev-gh/clientera-telegram-bot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDialogPromptIncludesStateAndActions(t *testing.T) {
	prompt := buildDialogPrompt(models.CompletionRequest{
		ClientID: "c-1",
		Profile:  &models.ClientProfile{FirstName: "Мария", FavoriteServices: []string{"Маникюр"}},
		History: []models.Turn{
			{Role: models.RoleClient, Content: "хочу записаться"},
			{Role: models.RoleBot, Content: "на какую услугу?"},
		},
		Context:      []models.Chunk{{Title: "Цены", Content: "Маникюр 2000р"}},
		State:        models.StateAwaitingConfirmation,
		LegalActions: []models.ActionType{models.ActionConfirm, models.ActionCancel},
	})

	assert.Contains(t, prompt, "Мария")
	assert.Contains(t, prompt, "Маникюр 2000р")
	assert.Contains(t, prompt, "Клиент: хочу записаться")
	assert.Contains(t, prompt, string(models.StateAwaitingConfirmation))
	assert.Contains(t, prompt, "confirm, cancel")
}

func TestBuildDialogPromptCarriesErrorContext(t *testing.T) {
	prompt := buildDialogPrompt(models.CompletionRequest{
		State:        models.StateIdle,
		ErrorContext: "Услуга не найдена",
	})
	assert.Contains(t, prompt, "Услуга не найдена")
}

func TestParseFacts(t *testing.T) {
	facts, err := parseFacts(`{"favorite_services": ["Маникюр"], "custom_notes": {"аллергия": "гель-лак"}}`)
	require.NoError(t, err)
	require.NotNil(t, facts)
	assert.Equal(t, []string{"Маникюр"}, facts.FavoriteServices)
	assert.Equal(t, "гель-лак", facts.Notes["аллергия"])

	facts, err = parseFacts("   ")
	require.NoError(t, err)
	assert.Nil(t, facts)

	_, err = parseFacts("not json")
	require.Error(t, err)
}

func TestCost(t *testing.T) {
	cost := Cost("models/gemini-1.5-pro", 1000, 1000)
	assert.InDelta(t, 0.00625, cost, 1e-9)
	assert.Zero(t, Cost("models/unknown", 1000, 1000))
	assert.Zero(t, Cost("models/text-embedding-004", 1000, 0))
}
