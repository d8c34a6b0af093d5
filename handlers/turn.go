package handlers

import (
	"errors"
	"net/http"

	"github.com/ntolkachev-gh/clientera-telegram-bot/services/dialog"
	"github.com/ntolkachev-gh/clientera-telegram-bot/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TurnRequest is one inbound message from the transport bridge.
type TurnRequest struct {
	ChatID    string `json:"chat_id" binding:"required"`
	MessageID string `json:"message_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Text      string `json:"text" binding:"required"`
}

// TurnHandler exposes the dialog engine to the transport bridge.
type TurnHandler struct {
	Engine dialog.DialogService
}

// NewTurnHandler creates a TurnHandler.
func NewTurnHandler(engine dialog.DialogService) *TurnHandler {
	return &TurnHandler{Engine: engine}
}

// HandleTurn processes one inbound message and returns the bot's reply.
func (h *TurnHandler) HandleTurn(c *gin.Context) {
	logger := utils.GetLogger()

	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Invalid turn request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	reply, err := h.Engine.HandleTurn(c.Request.Context(), dialog.Inbound{
		ChatID:    req.ChatID,
		MessageID: req.MessageID,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Text:      req.Text,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, reply)
	case errors.Is(err, dialog.ErrDuplicateInbound):
		// Replayed delivery: acknowledge without a reply so the transport
		// does not post a second answer.
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
	case errors.Is(err, dialog.ErrTurnQueueFull):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Client has too many messages in flight"})
	default:
		logger.Error("Failed to process turn",
			zap.String("chatId", req.ChatID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process message"})
	}
}
