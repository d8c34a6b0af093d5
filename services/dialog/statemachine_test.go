package dialog

import (
	"testing"

	"github.com/ntolkachev-gh/clientera-telegram-bot/models"

	"github.com/stretchr/testify/assert"
)

func TestActionLegality(t *testing.T) {
	assert.True(t, actionLegal(models.StateIdle, models.ActionProposeService))
	assert.False(t, actionLegal(models.StateIdle, models.ActionConfirm))
	assert.False(t, actionLegal(models.StateIdle, models.ActionCancel))

	assert.True(t, actionLegal(models.StateAwaitingMasterChoice, models.ActionProposeMaster))
	assert.True(t, actionLegal(models.StateAwaitingMasterChoice, models.ActionCancel))
	assert.False(t, actionLegal(models.StateAwaitingMasterChoice, models.ActionProposeSlot))

	assert.True(t, actionLegal(models.StateAwaitingConfirmation, models.ActionConfirm))
	assert.False(t, actionLegal(models.StateAwaitingConfirmation, models.ActionProposeService))
}

func TestCommittingAllowsNoActions(t *testing.T) {
	assert.Empty(t, LegalActions(models.StateCommitting))
	for _, a := range []models.ActionType{
		models.ActionProposeService, models.ActionProposeMaster,
		models.ActionProposeSlot, models.ActionConfirm, models.ActionCancel,
	} {
		assert.False(t, actionLegal(models.StateCommitting, a))
	}
}

func TestTerminalStatesHaveNoActions(t *testing.T) {
	for _, s := range []models.SessionState{models.StateCompleted, models.StateAbandoned, models.StateFailed} {
		assert.Empty(t, LegalActions(s))
	}
}

func TestGroundingStates(t *testing.T) {
	assert.True(t, needsGrounding(models.StateIdle))
	assert.True(t, needsGrounding(models.StateCollectingIntent))
	assert.False(t, needsGrounding(models.StateAwaitingSlotChoice))
	assert.False(t, needsGrounding(models.StateCommitting))
}
