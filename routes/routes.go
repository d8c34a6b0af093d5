package routes

import (
	"net/http"
	"time"

	"github.com/ntolkachev-gh/clientera-telegram-bot/handlers"
	"github.com/ntolkachev-gh/clientera-telegram-bot/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterDialogRoutes registers the transport-facing dialog endpoint.
func RegisterDialogRoutes(r *gin.Engine, th *handlers.TurnHandler) {
	api := r.Group("/api/dialog")
	{
		api.POST("/turn", th.HandleTurn)
	}
}

// RegisterAdminRoutes registers admin login and the operational views.
func RegisterAdminRoutes(r *gin.Engine, ah *handlers.AdminHandler) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.POST("/login", ah.LoginHandler)

		// Protected routes (Require Authentication)
		protected := adminGroup.Group("")
		protected.Use(middleware.JWTAuthAdminMiddleware())
		protected.GET("/clients/:id/sessions", ah.GetClientSessionsHandler)
		protected.GET("/clients/:id/appointments", ah.GetClientAppointmentsHandler)
		protected.GET("/clients/:id/stats", ah.GetClientStatsHandler)
		protected.GET("/usage", ah.GetUsageStatsHandler)
		protected.POST("/appointments/:id/cancel", ah.CancelAppointmentHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, th *handlers.TurnHandler, ah *handlers.AdminHandler) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterDialogRoutes(r, th)
	RegisterAdminRoutes(r, ah)
	RegisterHealthRoute(r)
}
