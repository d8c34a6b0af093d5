package sessionRepo

import (
	"github.com/ntolkachev-gh/clientera-telegram-bot/models"
)

// SessionRepository defines persistence for dialog sessions and their
// append-only message audit trail. A session document embeds its bounded
// history and pending action, so Save is the atomic unit of a turn.
type SessionRepository interface {
	// GetActiveByClient returns the client's single non-terminal session,
	// or (nil, nil) when none exists.
	GetActiveByClient(clientID string) (*models.Session, error)
	GetByID(id string) (*models.Session, error)
	// ListByClient returns all of a client's sessions, newest first.
	ListByClient(clientID string) ([]models.Session, error)
	// Save upserts the full session document in one write.
	Save(session *models.Session) error
	// AppendAudit stores a turn in the append-only audit collection.
	// Audit turns are never mutated after creation.
	AppendAudit(turn *models.Turn) error
	// CountAuditByClient returns the number of audit turns recorded for
	// the client's sessions.
	CountAuditByClient(sessionIDs []string) (int64, error)
}
