package models

import "time"

// AppointmentStatus tracks the lifecycle of a committed booking.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment is a committed booking record. Created only by a successful
// booking-gateway commit; referenced read-only everywhere else.
type Appointment struct {
	ID          string `bson:"id" json:"id"`
	ClientID    string `bson:"clientId" json:"clientId"`
	ServiceID   string `bson:"serviceId" json:"serviceId"`
	ServiceName string `bson:"serviceName" json:"serviceName"`
	MasterID    string `bson:"masterId" json:"masterId"`
	MasterName  string `bson:"masterName" json:"masterName"`

	StartAt         time.Time         `bson:"startAt" json:"startAt"`
	DurationMinutes int               `bson:"durationMinutes" json:"durationMinutes"`
	Status          AppointmentStatus `bson:"status" json:"status"`

	// ConfirmationID is the booking system's record id.
	ConfirmationID string `bson:"confirmationId" json:"confirmationId"`
	// IdempotencyToken is the token the commit was issued under.
	IdempotencyToken string `bson:"idempotencyToken" json:"idempotencyToken"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Service is a bookable salon service as listed by the booking system.
type Service struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Price           int    `json:"price"`
	DurationMinutes int    `json:"duration"`
}

// Master is a salon staff member.
type Master struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Surname        string `json:"surname"`
	Specialization string `json:"specialization"`
}

// FullName joins the master's name parts.
func (m Master) FullName() string {
	if m.Surname == "" {
		return m.Name
	}
	return m.Name + " " + m.Surname
}

// Slot is an open appointment start time offered by the booking system,
// RFC 3339.
type Slot struct {
	StartAt string `json:"start_at"`
}
