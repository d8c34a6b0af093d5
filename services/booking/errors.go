package booking

import (
	"errors"
	"fmt"
)

// ErrorKind classifies booking-gateway failures for the dialog engine.
type ErrorKind string

const (
	// KindSlotUnavailable: the requested slot is gone. Non-retryable;
	// the session is rolled back to slot selection.
	KindSlotUnavailable ErrorKind = "slotUnavailable"
	// KindTransient: timeouts and 5xx-class responses. Retryable with
	// capped backoff under the same idempotency token.
	KindTransient ErrorKind = "transientUnavailable"
	// KindAuthFailure: credentials rejected. Fatal for the session.
	KindAuthFailure ErrorKind = "authFailure"
	// KindRejected: the booking system refused the request for good.
	// Retrying the same content can never succeed.
	KindRejected ErrorKind = "rejected"
)

// GatewayError wraps a booking API failure with its classification.
type GatewayError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func newGatewayError(kind ErrorKind, msg string, err error) *GatewayError {
	return &GatewayError{Kind: kind, Message: msg, Err: err}
}

func kindOf(err error) (ErrorKind, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Kind, true
	}
	return "", false
}

// IsSlotUnavailable reports whether err is a non-retryable lost-slot failure.
func IsSlotUnavailable(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindSlotUnavailable
}

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTransient
}

// IsAuthFailure reports whether err is a fatal credential failure.
func IsAuthFailure(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindAuthFailure
}

// IsRejected reports whether err is a permanent refusal.
func IsRejected(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindRejected
}
