package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	clientRepo "github.com/ntolkachev-gh/clientera-telegram-bot/database/repository/client"
	"github.com/ntolkachev-gh/clientera-telegram-bot/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeSendReminder = "reminder:send"

// NewReminderTask builds a delayed reminder task.
func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendReminder, b)
	opts := []asynq.Option{asynq.ProcessAt(fireAt), asynq.MaxRetry(3)}

	return task, opts, nil
}

// Sender delivers a reminder text to the client's chat.
type Sender interface {
	Send(ctx context.Context, chatID, text string) error
}

// HTTPSender posts reminders to the transport bridge, which owns the
// actual messenger delivery.
type HTTPSender struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPSender creates a sender against the transport bridge.
func NewHTTPSender(baseURL string) *HTTPSender {
	return &HTTPSender{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

// Send delivers one outbound message.
func (s *HTTPSender) Send(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(map[string]string{"chat_id": chatID, "text": text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transport send failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("transport send returned status %d", resp.StatusCode)
	}
	return nil
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ReminderScheduler finds clients whose last visit is older than their
// reminder interval and enqueues one reminder each.
type ReminderScheduler struct {
	clients         clientRepo.ClientRepository
	queue           enqueuer
	remindAfterDays int
	logger          *zap.Logger
}

// NewReminderScheduler creates the scheduler. remindAfterDays is the
// default interval for clients that never set their own.
func NewReminderScheduler(clients clientRepo.ClientRepository, asynqClient *asynq.Client, remindAfterDays int, logger *zap.Logger) *ReminderScheduler {
	return &ReminderScheduler{
		clients:         clients,
		queue:           asynqClient,
		remindAfterDays: remindAfterDays,
		logger:          logger,
	}
}

// ScheduleDue enqueues reminders for every opted-in client overdue for a
// visit. Each client's own interval wins over the default, so the repo
// query uses the loosest cutoff and the per-client check happens here.
// Returns the number of reminders enqueued.
func (s *ReminderScheduler) ScheduleDue(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.clients.DueForReminder(now)
	if err != nil {
		return 0, fmt.Errorf("failed to list clients due for reminder: %w", err)
	}

	enqueued := 0
	for _, client := range candidates {
		window := client.RemindAfterDays
		if window <= 0 {
			window = s.remindAfterDays
		}
		if client.LastVisit == nil || client.LastVisit.After(now.AddDate(0, 0, -window)) {
			continue
		}
		payload := models.ReminderPayload{
			ClientID: client.ID,
			ChatID:   client.ChatID,
			Text:     reminderText(&client),
		}
		task, opts, err := NewReminderTask(payload, now)
		if err != nil {
			s.logger.Error("failed to build reminder task",
				zap.String("clientId", client.ID), zap.Error(err))
			continue
		}
		if _, err := s.queue.EnqueueContext(ctx, task, opts...); err != nil {
			s.logger.Error("failed to enqueue reminder",
				zap.String("clientId", client.ID), zap.Error(err))
			continue
		}
		enqueued++
	}
	s.logger.Info("reminder scheduling pass complete",
		zap.Int("candidates", len(candidates)), zap.Int("enqueued", enqueued))
	return enqueued, nil
}

func reminderText(client *models.ClientProfile) string {
	name := client.DisplayName()
	if len(client.FavoriteServices) > 0 {
		return fmt.Sprintf("%s, давно вас не видели! Может быть, пора снова на %s? Напишите мне, подберём удобное время.",
			name, client.FavoriteServices[0])
	}
	return fmt.Sprintf("%s, давно вас не видели! Напишите мне, если захотите записаться — подберём удобное время.", name)
}
