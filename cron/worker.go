package cron

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ntolkachev-gh/clientera-telegram-bot/config"
	"github.com/ntolkachev-gh/clientera-telegram-bot/models"
	"github.com/ntolkachev-gh/clientera-telegram-bot/services/tasks"
	"github.com/ntolkachev-gh/clientera-telegram-bot/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// InitReminderWorker runs the async reminder worker in the background.
func InitReminderWorker(sender tasks.Sender) {
	logger := utils.GetLogger()

	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSendReminder, handleReminderTask(sender))

	go func() {
		logger.Info("starting reminder worker")
		policy := utils.RetryPolicy{MaxAttempts: 5, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second}

		for attempt := 1; attempt <= policy.Attempts(); attempt++ {
			err := srv.Run(mux)
			if err == nil {
				return
			}
			logger.Error("reminder worker failed to start",
				zap.Int("attempt", attempt), zap.Error(err))
			if attempt == policy.Attempts() {
				logger.Fatal("reminder worker exhausted start attempts")
			}
			if waitErr := policy.Wait(context.Background(), attempt); waitErr != nil {
				return
			}
		}
	}()
}

func handleReminderTask(sender tasks.Sender) asynq.HandlerFunc {
	logger := utils.GetLogger()
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid reminder payload", zap.Error(err))
			return err
		}

		if err := sender.Send(ctx, p.ChatID, p.Text); err != nil {
			logger.Error("failed to send reminder",
				zap.String("clientId", p.ClientID), zap.Error(err))
			return err
		}
		logger.Info("reminder sent", zap.String("clientId", p.ClientID))
		return nil
	}
}

// StartReminderScheduler runs a daily pass that enqueues reminders for
// clients overdue for a visit.
func StartReminderScheduler(scheduler *tasks.ReminderScheduler) {
	logger := utils.GetLogger()
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			if _, err := scheduler.ScheduleDue(context.Background(), time.Now()); err != nil {
				logger.Error("reminder scheduling pass failed", zap.Error(err))
			}
			<-ticker.C
		}
	}()
}
