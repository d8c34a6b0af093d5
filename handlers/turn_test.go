package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ntolkachev-gh/clientera-telegram-bot/models"
	"github.com/ntolkachev-gh/clientera-telegram-bot/services/dialog"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	reply *dialog.Reply
	err   error
	got   dialog.Inbound
}

func (s *stubEngine) HandleTurn(ctx context.Context, in dialog.Inbound) (*dialog.Reply, error) {
	s.got = in
	return s.reply, s.err
}

func postTurn(t *testing.T, engine dialog.DialogService, body any) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/dialog/turn", NewTurnHandler(engine).HandleTurn)

	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/dialog/turn", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleTurnOK(t *testing.T) {
	engine := &stubEngine{reply: &dialog.Reply{
		SessionID: "s-1",
		State:     models.StateCollectingIntent,
		Text:      "Здравствуйте! Чем могу помочь?",
	}}
	w := postTurn(t, engine, map[string]string{
		"chat_id": "chat-1", "message_id": "m-1", "text": "привет",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	var reply dialog.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, "s-1", reply.SessionID)
	assert.Equal(t, "chat-1", engine.got.ChatID)
	assert.Equal(t, "привет", engine.got.Text)
}

func TestHandleTurnMissingFields(t *testing.T) {
	w := postTurn(t, &stubEngine{}, map[string]string{"chat_id": "chat-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleTurnDuplicateIsAcknowledged(t *testing.T) {
	w := postTurn(t, &stubEngine{err: dialog.ErrDuplicateInbound}, map[string]string{
		"chat_id": "chat-1", "text": "привет",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate")
}

func TestHandleTurnQueueFull(t *testing.T) {
	w := postTurn(t, &stubEngine{err: dialog.ErrTurnQueueFull}, map[string]string{
		"chat_id": "chat-1", "text": "привет",
	})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
