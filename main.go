package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ntolkachev-gh/clientera-telegram-bot/config"
	"github.com/ntolkachev-gh/clientera-telegram-bot/cron"
	"github.com/ntolkachev-gh/clientera-telegram-bot/database"
	appointmentRepoPkg "github.com/ntolkachev-gh/clientera-telegram-bot/database/repository/appointment"
	clientRepoPkg "github.com/ntolkachev-gh/clientera-telegram-bot/database/repository/client"
	sessionRepoPkg "github.com/ntolkachev-gh/clientera-telegram-bot/database/repository/session"
	usageRepoPkg "github.com/ntolkachev-gh/clientera-telegram-bot/database/repository/usage"
	"github.com/ntolkachev-gh/clientera-telegram-bot/handlers"
	"github.com/ntolkachev-gh/clientera-telegram-bot/middleware"
	"github.com/ntolkachev-gh/clientera-telegram-bot/routes"
	"github.com/ntolkachev-gh/clientera-telegram-bot/services/booking"
	"github.com/ntolkachev-gh/clientera-telegram-bot/services/dialog"
	"github.com/ntolkachev-gh/clientera-telegram-bot/services/llm"
	"github.com/ntolkachev-gh/clientera-telegram-bot/services/retrieval"
	"github.com/ntolkachev-gh/clientera-telegram-bot/services/tasks"
	"github.com/ntolkachev-gh/clientera-telegram-bot/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitDedupCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	clientRepo := clientRepoPkg.NewMongoClientRepo()
	sessionRepo := sessionRepoPkg.NewMongoSessionRepo()
	appointmentRepo := appointmentRepoPkg.NewMongoAppointmentRepo()
	usageRepo := usageRepoPkg.NewMongoUsageRepo()

	// services.
	modelClient, err := llm.NewClient(
		config.AppConfig.GeminiAPIKey,
		config.AppConfig.GeminiModel,
		config.AppConfig.EmbeddingModel,
		usageRepo,
		logger,
	)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize model client: %v", err)
	}

	retriever := retrieval.NewQdrantRetriever(
		config.AppConfig.QdrantURL,
		config.AppConfig.QdrantAPIKey,
		config.AppConfig.QdrantCollection,
		config.AppConfig.RetrievalMinScore,
		modelClient,
		logger,
	)

	gateway := booking.NewYouclientsGateway(
		config.AppConfig.YouclientsBaseURL,
		config.AppConfig.YouclientsAPIKey,
		config.AppConfig.YouclientsCompanyID,
		time.Duration(config.AppConfig.BookingTimeoutSec)*time.Second,
		logger,
	)
	committer := booking.NewCommitter(gateway, appointmentRepo, utils.RetryPolicy{
		MaxAttempts: config.AppConfig.BookingMaxAttempts,
		BaseDelay:   time.Duration(config.AppConfig.BookingBackoffMS) * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}, logger)

	// Service and staff lists are read on nearly every turn; cache them.
	catalog := booking.NewCachedCatalog(
		gateway,
		utils.GetCacheClient(),
		time.Duration(config.AppConfig.CatalogCacheTTLMin)*time.Minute,
		logger,
	)

	deduper := dialog.NewRedisDeduper(
		utils.GetDedupCacheClient(),
		time.Duration(config.AppConfig.DedupWindowSec)*time.Second,
	)

	engine := dialog.NewEngine(
		clientRepo,
		sessionRepo,
		modelClient,
		retriever,
		committer,
		catalog,
		deduper,
		dialog.Options{
			HistoryLimit:     config.AppConfig.HistoryLimit,
			SessionTimeout:   config.SessionTimeout(),
			RetrievalTopK:    config.AppConfig.RetrievalTopK,
			TurnQueueDepth:   config.AppConfig.TurnQueueDepth,
			ModelTimeout:     time.Duration(config.AppConfig.ModelTimeoutSec) * time.Second,
			RetrievalTimeout: time.Duration(config.AppConfig.RetrievalTimeoutSec) * time.Second,
			BookingTimeout:   time.Duration(config.AppConfig.BookingTimeoutSec) * time.Second,
		},
		logger,
	)

	// Reminder pipeline: asynq worker plus the daily scheduling pass.
	sender := tasks.NewHTTPSender(config.AppConfig.TransportURL)
	cron.InitReminderWorker(sender)
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer asynqClient.Close()
	scheduler := tasks.NewReminderScheduler(clientRepo, asynqClient, config.AppConfig.RemindAfterDays, logger)
	cron.StartReminderScheduler(scheduler)

	// handlers.
	turnHandler := handlers.NewTurnHandler(engine)
	adminHandler := handlers.NewAdminHandler(clientRepo, sessionRepo, appointmentRepo, usageRepo, gateway)

	routes.RegisterRoutes(router, turnHandler, adminHandler)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
