package clientRepo

import (
	"time"

	"github.com/ntolkachev-gh/clientera-telegram-bot/models"
)

// ClientRepository defines persistence for client profiles.
type ClientRepository interface {
	Create(client *models.ClientProfile) error
	Update(client *models.ClientProfile) error
	GetByID(id string) (*models.ClientProfile, error)
	// GetByChatID returns (nil, nil) when no profile exists yet.
	GetByChatID(chatID string) (*models.ClientProfile, error)
	// DueForReminder returns opted-in clients whose last visit is older
	// than the given instant.
	DueForReminder(before time.Time) ([]models.ClientProfile, error)
}
