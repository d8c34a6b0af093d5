package handlers

import (
	"net/http"
	"time"

	"github.com/ntolkachev-gh/clientera-telegram-bot/config"
	appointmentRepo "github.com/ntolkachev-gh/clientera-telegram-bot/database/repository/appointment"
	clientRepo "github.com/ntolkachev-gh/clientera-telegram-bot/database/repository/client"
	sessionRepo "github.com/ntolkachev-gh/clientera-telegram-bot/database/repository/session"
	usageRepo "github.com/ntolkachev-gh/clientera-telegram-bot/database/repository/usage"
	"github.com/ntolkachev-gh/clientera-telegram-bot/models"
	"github.com/ntolkachev-gh/clientera-telegram-bot/services/booking"
	"github.com/ntolkachev-gh/clientera-telegram-bot/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminHandler exposes read-only operational views and admin login.
type AdminHandler struct {
	Clients      clientRepo.ClientRepository
	Sessions     sessionRepo.SessionRepository
	Appointments appointmentRepo.AppointmentRepository
	Usage        usageRepo.UsageRepository
	Booking      booking.Gateway
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	clients clientRepo.ClientRepository,
	sessions sessionRepo.SessionRepository,
	appointments appointmentRepo.AppointmentRepository,
	usage usageRepo.UsageRepository,
	gateway booking.Gateway,
) *AdminHandler {
	return &AdminHandler{
		Clients:      clients,
		Sessions:     sessions,
		Appointments: appointments,
		Usage:        usage,
		Booking:      gateway,
	}
}

type adminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginHandler authenticates the operator and issues a JWT.
func (ah *AdminHandler) LoginHandler(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	if req.Username != config.AppConfig.AdminUsername ||
		bcrypt.CompareHashAndPassword([]byte(config.AppConfig.AdminPasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := utils.GenerateToken(req.Username, 24*time.Hour)
	if err != nil {
		zap.L().Error("Failed to issue admin token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// GetClientSessionsHandler returns all sessions of a client, newest first.
func (ah *AdminHandler) GetClientSessionsHandler(c *gin.Context) {
	clientID := c.Param("id")
	sessions, err := ah.Sessions.ListByClient(clientID)
	if err != nil {
		zap.L().Error("Failed to fetch client sessions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sessions"})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GetClientAppointmentsHandler returns a client's committed bookings.
func (ah *AdminHandler) GetClientAppointmentsHandler(c *gin.Context) {
	clientID := c.Param("id")
	appointments, err := ah.Appointments.ListByClient(clientID)
	if err != nil {
		zap.L().Error("Failed to fetch client appointments", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch appointments"})
		return
	}
	c.JSON(http.StatusOK, appointments)
}

// GetUsageStatsHandler returns aggregated model usage and cost.
func (ah *AdminHandler) GetUsageStatsHandler(c *gin.Context) {
	stats, err := ah.Usage.Stats()
	if err != nil {
		zap.L().Error("Failed to fetch usage stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch usage stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CancelAppointmentHandler cancels a committed booking in the booking
// system and marks the local record cancelled.
func (ah *AdminHandler) CancelAppointmentHandler(c *gin.Context) {
	id := c.Param("id")
	appointment, err := ah.Appointments.GetByID(id)
	if err != nil || appointment == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Appointment not found"})
		return
	}
	if appointment.Status == models.AppointmentCancelled {
		c.JSON(http.StatusOK, gin.H{"status": "already cancelled"})
		return
	}

	if err := ah.Booking.CancelAppointment(c.Request.Context(), appointment.ConfirmationID); err != nil {
		zap.L().Error("Failed to cancel appointment in booking system",
			zap.String("appointmentId", id), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Booking system rejected the cancellation"})
		return
	}
	if err := ah.Appointments.UpdateStatus(id, models.AppointmentCancelled); err != nil {
		zap.L().Error("Failed to mark appointment cancelled",
			zap.String("appointmentId", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update appointment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// GetClientStatsHandler returns one client's profile with activity counters.
func (ah *AdminHandler) GetClientStatsHandler(c *gin.Context) {
	clientID := c.Param("id")
	client, err := ah.Clients.GetByID(clientID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		return
	}

	sessions, err := ah.Sessions.ListByClient(clientID)
	if err != nil {
		zap.L().Error("Failed to fetch client sessions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sessions"})
		return
	}
	sessionIDs := make([]string, len(sessions))
	for i, s := range sessions {
		sessionIDs[i] = s.ID
	}
	messageCount, err := ah.Sessions.CountAuditByClient(sessionIDs)
	if err != nil {
		zap.L().Error("Failed to count client messages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count messages"})
		return
	}
	appointments, err := ah.Appointments.ListByClient(clientID)
	if err != nil {
		zap.L().Error("Failed to fetch client appointments", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch appointments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client":       client,
		"sessions":     len(sessions),
		"messages":     messageCount,
		"appointments": len(appointments),
	})
}
