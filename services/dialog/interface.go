package dialog

import (
	"context"
	"time"

	"github.com/ntolkachev-gh/clientera-telegram-bot/models"
)

// Completer is the language-model boundary. Implementations must return
// decoded output for anything the model said and reserve errors for
// transport and timeout failures.
type Completer interface {
	Complete(ctx context.Context, req models.CompletionRequest) (*models.ModelOutput, error)
	ExtractFacts(ctx context.Context, clientID string, history []models.Turn) (*models.ClientFacts, error)
}

// Retriever answers knowledge-base queries. An unavailable retriever
// degrades the turn to ungrounded, it never blocks it.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]models.Chunk, error)
}

// Committer books a confirmed pending action exactly once per idempotency
// token.
type Committer interface {
	Commit(ctx context.Context, client *models.ClientProfile, sessionID string, pending *models.PendingAction) (*models.Appointment, error)
}

// Catalog validates model proposals against what the booking system
// actually offers.
type Catalog interface {
	ListServices(ctx context.Context) ([]models.Service, error)
	ListMasters(ctx context.Context) ([]models.Master, error)
	ListSlots(ctx context.Context, serviceID, masterID string) ([]models.Slot, error)
}

// Deduper filters replayed inbound messages within a time window.
type Deduper interface {
	// Seen records the message id and reports whether it was already seen.
	Seen(ctx context.Context, clientKey, messageID string) (bool, error)
}

// Inbound is one client message arriving from the transport.
type Inbound struct {
	ChatID    string
	MessageID string
	Username  string
	FirstName string
	LastName  string
	Text      string
}

// Reply is the engine's answer to one inbound message.
type Reply struct {
	SessionID string              `json:"sessionId"`
	State     models.SessionState `json:"state"`
	Text      string              `json:"text"`
}

// DialogService processes inbound messages, one at a time per client.
type DialogService interface {
	HandleTurn(ctx context.Context, in Inbound) (*Reply, error)
}

// Options bounds the engine's per-turn work.
type Options struct {
	HistoryLimit     int
	SessionTimeout   time.Duration
	RetrievalTopK    int
	TurnQueueDepth   int
	ModelTimeout     time.Duration
	RetrievalTimeout time.Duration
	BookingTimeout   time.Duration
}
