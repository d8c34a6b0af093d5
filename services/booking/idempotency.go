package booking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	appointmentRepo "github.com/ntolkachev-gh/clientera-telegram-bot/database/repository/appointment"
	"github.com/ntolkachev-gh/clientera-telegram-bot/models"
	"github.com/ntolkachev-gh/clientera-telegram-bot/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultDurationMinutes = 60

// IdempotencyToken derives the commit token from the session id and the
// full pending content. The same session confirming the same service,
// master and slot always yields the same token; any change to the content
// yields a new one.
func IdempotencyToken(sessionID string, pending *models.PendingAction) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", sessionID, pending.ServiceID, pending.MasterID, pending.Slot)
	return hex.EncodeToString(h.Sum(nil))
}

// Committer turns a confirmed pending action into exactly one appointment.
// The booking API itself is not safe to blindly retry, so every attempt is
// bracketed by token lookups: once an appointment exists under the token,
// the commit is already done regardless of what the wire said.
type Committer struct {
	gateway      Gateway
	appointments appointmentRepo.AppointmentRepository
	retry        utils.RetryPolicy
	logger       *zap.Logger
}

// NewCommitter creates a Committer with the given retry schedule.
func NewCommitter(gateway Gateway, appointments appointmentRepo.AppointmentRepository, retry utils.RetryPolicy, logger *zap.Logger) *Committer {
	return &Committer{
		gateway:      gateway,
		appointments: appointments,
		retry:        retry,
		logger:       logger,
	}
}

// Commit books the pending action for the client. Duplicate invocations
// under the same token return the already committed appointment. On a
// non-retryable failure the GatewayError is returned for classification
// by the caller.
func (c *Committer) Commit(ctx context.Context, client *models.ClientProfile, sessionID string, pending *models.PendingAction) (*models.Appointment, error) {
	if !pending.Complete() {
		return nil, fmt.Errorf("pending action is incomplete")
	}
	token := pending.IdempotencyToken
	if token == "" {
		token = IdempotencyToken(sessionID, pending)
	}

	if existing, err := c.appointments.GetByToken(token); err != nil {
		return nil, fmt.Errorf("failed to check idempotency token: %w", err)
	} else if existing != nil {
		c.logger.Info("commit replay detected, returning committed appointment",
			zap.String("appointmentId", existing.ID),
			zap.String("sessionId", sessionID))
		return existing, nil
	}

	var lastErr error
	for attempt := 1; attempt <= c.retry.Attempts(); attempt++ {
		confirmationID, err := c.gateway.CreateAppointment(ctx, CreateRequest{
			ServiceID:        pending.ServiceID,
			MasterID:         pending.MasterID,
			Slot:             pending.Slot,
			ClientName:       client.DisplayName(),
			ClientPhone:      client.Phone,
			IdempotencyToken: token,
		})
		if err == nil {
			return c.record(client.ID, pending, token, confirmationID)
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err

		// The failed call may still have landed. Re-check before retrying
		// so a retry never produces a second booking.
		if existing, lookupErr := c.appointments.GetByToken(token); lookupErr == nil && existing != nil {
			return existing, nil
		}
		c.logger.Warn("booking commit attempt failed",
			zap.Int("attempt", attempt),
			zap.String("sessionId", sessionID),
			zap.Error(err))
		if attempt < c.retry.Attempts() {
			if waitErr := c.retry.Wait(ctx, attempt); waitErr != nil {
				return nil, waitErr
			}
		}
	}
	return nil, lastErr
}

func (c *Committer) record(clientID string, pending *models.PendingAction, token, confirmationID string) (*models.Appointment, error) {
	startAt, err := time.Parse(time.RFC3339, pending.Slot)
	if err != nil {
		return nil, fmt.Errorf("pending slot is not a valid timestamp: %w", err)
	}
	now := time.Now()
	appointment := &models.Appointment{
		ID:               uuid.New().String(),
		ClientID:         clientID,
		ServiceID:        pending.ServiceID,
		ServiceName:      pending.ServiceName,
		MasterID:         pending.MasterID,
		MasterName:       pending.MasterName,
		StartAt:          startAt,
		DurationMinutes:  defaultDurationMinutes,
		Status:           models.AppointmentScheduled,
		ConfirmationID:   confirmationID,
		IdempotencyToken: token,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := c.appointments.Create(appointment); err != nil {
		// The unique token index catches a concurrent commit that won the
		// race; surface the winner instead of the duplicate-key error.
		if existing, lookupErr := c.appointments.GetByToken(token); lookupErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to persist appointment: %w", err)
	}
	return appointment, nil
}
