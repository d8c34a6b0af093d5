package appointmentRepo

import (
	"github.com/ntolkachev-gh/clientera-telegram-bot/models"
)

// AppointmentRepository defines persistence for committed bookings.
type AppointmentRepository interface {
	Create(appointment *models.Appointment) error
	// GetByToken returns (nil, nil) when no appointment was committed under
	// the idempotency token. Checked before every create-appointment call.
	GetByToken(token string) (*models.Appointment, error)
	GetByID(id string) (*models.Appointment, error)
	ListByClient(clientID string) ([]models.Appointment, error)
	UpdateStatus(id string, status models.AppointmentStatus) error
}
