package models

import "time"

// SessionState is the explicit state-machine position of a dialog session.
// History is kept for context and audit only; this field is the single source
// of truth for control flow.
type SessionState string

const (
	StateIdle                  SessionState = "idle"
	StateCollectingIntent      SessionState = "collecting_intent"
	StateAwaitingServiceChoice SessionState = "awaiting_service_choice"
	StateAwaitingMasterChoice  SessionState = "awaiting_master_choice"
	StateAwaitingSlotChoice    SessionState = "awaiting_slot_choice"
	StateAwaitingConfirmation  SessionState = "awaiting_confirmation"
	StateCommitting            SessionState = "committing"
	StateCompleted             SessionState = "completed"
	StateAbandoned             SessionState = "abandoned"
	StateFailed                SessionState = "failed"
)

// Terminal reports whether the session can never accept another turn.
func (s SessionState) Terminal() bool {
	switch s {
	case StateCompleted, StateAbandoned, StateFailed:
		return true
	}
	return false
}

// TurnRole identifies the author of a turn.
type TurnRole string

const (
	RoleClient TurnRole = "client"
	RoleBot    TurnRole = "bot"
)

// Turn is one immutable exchange unit inside a session.
type Turn struct {
	ID        string    `bson:"id" json:"id"`
	SessionID string    `bson:"sessionId" json:"sessionId"`
	Role      TurnRole  `bson:"role" json:"role"`
	Content   string    `bson:"content" json:"content"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// PendingAction is the single in-flight booking intent of a session.
type PendingAction struct {
	ServiceID   string `bson:"serviceId,omitempty" json:"serviceId,omitempty"`
	ServiceName string `bson:"serviceName,omitempty" json:"serviceName,omitempty"`
	MasterID    string `bson:"masterId,omitempty" json:"masterId,omitempty"`
	MasterName  string `bson:"masterName,omitempty" json:"masterName,omitempty"`
	// Slot is the proposed start time, RFC 3339.
	Slot string `bson:"slot,omitempty" json:"slot,omitempty"`
	// IdempotencyToken is stable for the same session and booking content.
	IdempotencyToken string    `bson:"idempotencyToken,omitempty" json:"idempotencyToken,omitempty"`
	UpdatedAt        time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Complete reports whether all three booking slots are filled.
func (p *PendingAction) Complete() bool {
	return p != nil && p.ServiceID != "" && p.MasterID != "" && p.Slot != ""
}

// Session is one active (or recently active) conversation of a client.
// The session exclusively owns its turns and its single pending action.
type Session struct {
	ID       string       `bson:"id" json:"id"`
	ClientID string       `bson:"clientId" json:"clientId"`
	State    SessionState `bson:"state" json:"state"`
	// Turns is the bounded recent history, oldest dropped first.
	Turns   []Turn         `bson:"turns" json:"turns"`
	Pending *PendingAction `bson:"pending,omitempty" json:"pending,omitempty"`

	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	LastActivity time.Time `bson:"lastActivity" json:"lastActivity"`
	ClosedAt     *time.Time `bson:"closedAt,omitempty" json:"closedAt,omitempty"`
}

// AppendTurn adds a turn and trims history to the limit, oldest first.
// Trimming never happens mid-turn: the cap is applied on append only.
func (s *Session) AppendTurn(t Turn, limit int) {
	s.Turns = append(s.Turns, t)
	if limit > 0 && len(s.Turns) > limit {
		s.Turns = s.Turns[len(s.Turns)-limit:]
	}
	s.LastActivity = t.CreatedAt
}

// Expired reports whether the session has been idle longer than timeout.
func (s *Session) Expired(timeout time.Duration, now time.Time) bool {
	if timeout <= 0 {
		return false
	}
	return now.Sub(s.LastActivity) > timeout
}

// RecentTurns returns the most recent n turns in arrival order.
func (s *Session) RecentTurns(n int) []Turn {
	if n <= 0 || len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}
