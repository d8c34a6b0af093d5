package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ntolkachev-gh/clientera-telegram-bot/models"

	"go.uber.org/zap"
)

// Gateway is the external booking system boundary. The underlying API is
// not idempotent on retry; the Committer above this layer makes it so.
type Gateway interface {
	ListServices(ctx context.Context) ([]models.Service, error)
	ListMasters(ctx context.Context) ([]models.Master, error)
	ListSlots(ctx context.Context, serviceID, masterID string) ([]models.Slot, error)
	// CreateAppointment returns the booking system's confirmation id.
	CreateAppointment(ctx context.Context, req CreateRequest) (string, error)
	CancelAppointment(ctx context.Context, confirmationID string) error
}

// CreateRequest carries one create-appointment call.
type CreateRequest struct {
	ServiceID        string `json:"service_id"`
	MasterID         string `json:"staff_id"`
	Slot             string `json:"datetime"`
	ClientName       string `json:"client_name"`
	ClientPhone      string `json:"client_phone"`
	IdempotencyToken string `json:"-"`
}

// YouclientsGateway implements Gateway over the YouClients REST API.
type YouclientsGateway struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	companyID  string
	logger     *zap.Logger
}

// NewYouclientsGateway creates a booking gateway for the configured company.
func NewYouclientsGateway(baseURL, apiKey, companyID string, timeout time.Duration, logger *zap.Logger) *YouclientsGateway {
	return &YouclientsGateway{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		companyID:  companyID,
		logger:     logger,
	}
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

func (g *YouclientsGateway) do(ctx context.Context, method, endpoint string, payload any, headers map[string]string) (*apiEnvelope, error) {
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	reqURL := fmt.Sprintf("%s/company/%s/%s", g.baseURL, g.companyID, endpoint)
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// Network failures and timeouts are ambiguous: the call may or
		// may not have landed. Classified retryable; the committer
		// re-checks by token before retrying.
		return nil, newGatewayError(KindTransient, "booking api unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, newGatewayError(KindAuthFailure, fmt.Sprintf("booking api rejected credentials (status %d)", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, newGatewayError(KindSlotUnavailable, "requested slot is no longer available", nil)
	case resp.StatusCode >= 500:
		return nil, newGatewayError(KindTransient, fmt.Sprintf("booking api returned status %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		// Remaining 4xx means the request itself is bad; it will not get
		// better on retry.
		return nil, newGatewayError(KindRejected, fmt.Sprintf("booking api returned status %d", resp.StatusCode), nil)
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, newGatewayError(KindTransient, "failed to decode booking api response", err)
	}
	// The API reports business failures inside HTTP 200 responses.
	if !envelope.Success {
		return nil, classifyEnvelope(envelope.Code, envelope.Error)
	}
	return &envelope, nil
}

// Envelope error codes the booking system uses for a lost slot.
var slotConflictCodes = map[string]bool{
	"record_busy":        true,
	"slot_taken":         true,
	"time_not_available": true,
}

// classifyEnvelope maps an envelope-level failure onto the error taxonomy.
func classifyEnvelope(code, message string) *GatewayError {
	msg := message
	if msg == "" {
		msg = "booking api reported failure"
	}
	switch {
	case slotConflictCodes[code] || strings.Contains(strings.ToLower(message), "занят"):
		return newGatewayError(KindSlotUnavailable, msg, nil)
	case code == "unauthorized" || code == "forbidden" || code == "invalid_token":
		return newGatewayError(KindAuthFailure, msg, nil)
	case code == "" && message == "":
		// No diagnostics at all; treat as a glitch worth one more try.
		return newGatewayError(KindTransient, msg, nil)
	default:
		return newGatewayError(KindRejected, msg, nil)
	}
}

// ListServices returns the salon's bookable services.
func (g *YouclientsGateway) ListServices(ctx context.Context) ([]models.Service, error) {
	envelope, err := g.do(ctx, http.MethodGet, "services", nil, nil)
	if err != nil {
		return nil, err
	}
	var services []models.Service
	if err := json.Unmarshal(envelope.Data, &services); err != nil {
		return nil, newGatewayError(KindTransient, "failed to decode services", err)
	}
	return services, nil
}

// ListMasters returns the salon's staff.
func (g *YouclientsGateway) ListMasters(ctx context.Context) ([]models.Master, error) {
	envelope, err := g.do(ctx, http.MethodGet, "staff", nil, nil)
	if err != nil {
		return nil, err
	}
	var masters []models.Master
	if err := json.Unmarshal(envelope.Data, &masters); err != nil {
		return nil, newGatewayError(KindTransient, "failed to decode masters", err)
	}
	return masters, nil
}

// ListSlots returns open start times for a service with a master.
func (g *YouclientsGateway) ListSlots(ctx context.Context, serviceID, masterID string) ([]models.Slot, error) {
	endpoint := fmt.Sprintf("book_times?service_id=%s&staff_id=%s",
		url.QueryEscape(serviceID), url.QueryEscape(masterID))
	envelope, err := g.do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	var slots []models.Slot
	if err := json.Unmarshal(envelope.Data, &slots); err != nil {
		return nil, newGatewayError(KindTransient, "failed to decode slots", err)
	}
	return slots, nil
}

// CreateAppointment submits a booking. The idempotency token travels as a
// header so a replay of the same intent is recognizable server-side too.
func (g *YouclientsGateway) CreateAppointment(ctx context.Context, req CreateRequest) (string, error) {
	headers := map[string]string{"Idempotency-Key": req.IdempotencyToken}
	envelope, err := g.do(ctx, http.MethodPost, "records", req, headers)
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(envelope.Data, &created); err != nil {
		return "", newGatewayError(KindTransient, "failed to decode create response", err)
	}
	if created.ID == "" {
		return "", newGatewayError(KindTransient, "booking api returned no confirmation id", nil)
	}
	g.logger.Info("appointment created in booking system",
		zap.String("confirmationId", created.ID),
		zap.String("serviceId", req.ServiceID),
		zap.String("masterId", req.MasterID))
	return created.ID, nil
}

// CancelAppointment cancels a committed booking by its confirmation id.
func (g *YouclientsGateway) CancelAppointment(ctx context.Context, confirmationID string) error {
	endpoint := fmt.Sprintf("records/%s", url.PathEscape(confirmationID))
	if _, err := g.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return err
	}
	return nil
}
