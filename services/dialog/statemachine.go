package dialog

import (
	"github.com/ntolkachev-gh/clientera-telegram-bot/models"
)

// legalActions is the closed map from session state to the model actions
// the engine will execute from it. Committing is deliberately empty: once
// a commit is in flight the model is never consulted until it resolves.
var legalActions = map[models.SessionState][]models.ActionType{
	models.StateIdle:                  {models.ActionProposeService},
	models.StateCollectingIntent:      {models.ActionProposeService},
	models.StateAwaitingServiceChoice: {models.ActionProposeService, models.ActionCancel},
	models.StateAwaitingMasterChoice:  {models.ActionProposeMaster, models.ActionCancel},
	models.StateAwaitingSlotChoice:    {models.ActionProposeSlot, models.ActionCancel},
	models.StateAwaitingConfirmation:  {models.ActionConfirm, models.ActionCancel},
	models.StateCommitting:            {},
}

// LegalActions returns the actions executable from the given state.
func LegalActions(state models.SessionState) []models.ActionType {
	return legalActions[state]
}

func actionLegal(state models.SessionState, action models.ActionType) bool {
	for _, a := range legalActions[state] {
		if a == action {
			return true
		}
	}
	return false
}

// needsGrounding reports whether a turn in this state should consult the
// knowledge base. Mid-booking states run on catalog data, not prose.
func needsGrounding(state models.SessionState) bool {
	return state == models.StateIdle || state == models.StateCollectingIntent
}
