package models

import (
	"encoding/json"
	"strings"
)

// ActionType tags the closed set of structured actions a model may propose.
type ActionType string

const (
	ActionProposeService ActionType = "propose_service"
	ActionProposeMaster  ActionType = "propose_master"
	ActionProposeSlot    ActionType = "propose_slot"
	ActionConfirm        ActionType = "confirm"
	ActionCancel         ActionType = "cancel"
	ActionUnrecognized   ActionType = "unrecognized"
)

// ProposedAction is a structured booking intent extracted from model output.
// It is validated against the current legal-action set before any side effect.
type ProposedAction struct {
	Type        ActionType `json:"type"`
	ServiceID   string     `json:"service_id,omitempty"`
	ServiceName string     `json:"service_name,omitempty"`
	MasterID    string     `json:"master_id,omitempty"`
	MasterName  string     `json:"master_name,omitempty"`
	// Slot is the proposed start time, RFC 3339.
	Slot string `json:"slot,omitempty"`
}

// ModelOutput is the interpreted result of one model invocation: a reply,
// a proposed action, or both.
type ModelOutput struct {
	Reply  string          `json:"reply"`
	Action *ProposedAction `json:"action,omitempty"`
}

// ParseModelOutput decodes raw model text into the closed variant set. The
// model is untrusted: unknown shapes come back as ActionUnrecognized and a
// decode failure is an error, never propagated as trusted data.
func ParseModelOutput(raw string) (*ModelOutput, error) {
	raw = stripCodeFence(raw)

	var decoded struct {
		Reply  string `json:"reply"`
		Action *struct {
			Type        string `json:"type"`
			ServiceID   string `json:"service_id"`
			ServiceName string `json:"service_name"`
			MasterID    string `json:"master_id"`
			MasterName  string `json:"master_name"`
			Slot        string `json:"slot"`
		} `json:"action"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}

	out := &ModelOutput{Reply: decoded.Reply}
	if decoded.Action == nil || decoded.Action.Type == "" {
		return out, nil
	}

	action := &ProposedAction{
		ServiceID:   decoded.Action.ServiceID,
		ServiceName: decoded.Action.ServiceName,
		MasterID:    decoded.Action.MasterID,
		MasterName:  decoded.Action.MasterName,
		Slot:        decoded.Action.Slot,
	}
	switch ActionType(decoded.Action.Type) {
	case ActionProposeService, ActionProposeMaster, ActionProposeSlot, ActionConfirm, ActionCancel:
		action.Type = ActionType(decoded.Action.Type)
	default:
		action.Type = ActionUnrecognized
	}
	out.Action = action
	return out, nil
}

// stripCodeFence removes a markdown ```json fence if the model wrapped its
// answer in one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
