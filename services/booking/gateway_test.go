package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *YouclientsGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYouclientsGateway(srv.URL, "test-key", "42", 2*time.Second, zap.NewNop())
}

func TestCreateAppointmentSendsIdempotencyKey(t *testing.T) {
	var gotKey, gotAuth string
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/company/42/records", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"id": "A123"},
		})
	})

	id, err := gw.CreateAppointment(context.Background(), CreateRequest{
		ServiceID:        "svc-1",
		MasterID:         "m-1",
		Slot:             "2026-09-01T15:00:00Z",
		IdempotencyToken: "tok-abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "A123", id)
	assert.Equal(t, "tok-abc", gotKey)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestCreateAppointmentClassifiesFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"conflict is slot unavailable", http.StatusConflict, IsSlotUnavailable},
		{"unprocessable is slot unavailable", http.StatusUnprocessableEntity, IsSlotUnavailable},
		{"unauthorized is auth failure", http.StatusUnauthorized, IsAuthFailure},
		{"forbidden is auth failure", http.StatusForbidden, IsAuthFailure},
		{"server error is transient", http.StatusInternalServerError, IsTransient},
		{"bad gateway is transient", http.StatusBadGateway, IsTransient},
		{"bad request is rejected", http.StatusBadRequest, IsRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})
			_, err := gw.CreateAppointment(context.Background(), CreateRequest{IdempotencyToken: "t"})
			require.Error(t, err)
			assert.True(t, tc.check(err))
		})
	}
}

func TestCreateAppointmentEnvelopeFailures(t *testing.T) {
	// The API reports most business failures as success=false inside an
	// HTTP 200 response, not as an error status.
	cases := []struct {
		name     string
		body     map[string]any
		check    func(error) bool
		contains string
	}{
		{
			name:     "record busy code is slot unavailable",
			body:     map[string]any{"success": false, "error": "Выбранное время занято", "code": "record_busy"},
			check:    IsSlotUnavailable,
			contains: "занято",
		},
		{
			name:  "busy message without code is slot unavailable",
			body:  map[string]any{"success": false, "error": "Мастер занят в это время"},
			check: IsSlotUnavailable,
		},
		{
			name:  "invalid token is auth failure",
			body:  map[string]any{"success": false, "error": "token expired", "code": "invalid_token"},
			check: IsAuthFailure,
		},
		{
			name:  "unknown code is rejected",
			body:  map[string]any{"success": false, "error": "client is blacklisted", "code": "client_blocked"},
			check: IsRejected,
		},
		{
			name:  "bare failure without diagnostics is transient",
			body:  map[string]any{"success": false},
			check: IsTransient,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(tc.body)
			})
			_, err := gw.CreateAppointment(context.Background(), CreateRequest{IdempotencyToken: "t"})
			require.Error(t, err)
			assert.True(t, tc.check(err))
			if tc.contains != "" {
				assert.Contains(t, err.Error(), tc.contains)
			}
		})
	}
}

func TestCreateAppointmentUnreachableIsTransient(t *testing.T) {
	gw := NewYouclientsGateway("http://127.0.0.1:1", "k", "42", 200*time.Millisecond, zap.NewNop())
	_, err := gw.CreateAppointment(context.Background(), CreateRequest{IdempotencyToken: "t"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestListServices(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/company/42/services", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": "svc-1", "title": "Маникюр", "price": 2000, "duration": 60},
				{"id": "svc-2", "title": "Стрижка", "price": 1500, "duration": 45},
			},
		})
	})

	services, err := gw.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "Маникюр", services[0].Title)
	assert.Equal(t, 60, services[0].DurationMinutes)
}

func TestListSlotsQuery(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "svc-1", r.URL.Query().Get("service_id"))
		assert.Equal(t, "m-1", r.URL.Query().Get("staff_id"))
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    []map[string]string{{"start_at": "2026-09-01T15:00:00Z"}},
		})
	})

	slots, err := gw.ListSlots(context.Background(), "svc-1", "m-1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "2026-09-01T15:00:00Z", slots[0].StartAt)
}
