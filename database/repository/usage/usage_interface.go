package usageRepo

import (
	"github.com/ntolkachev-gh/clientera-telegram-bot/models"
)

// UsageRepository is the append-only sink for model-invocation accounting.
type UsageRepository interface {
	Append(record *models.UsageRecord) error
	Stats() (*models.UsageStats, error)
}
