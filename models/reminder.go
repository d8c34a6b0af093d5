package models

// ReminderPayload is the asynq task body for a return-visit reminder.
type ReminderPayload struct {
	ClientID string `json:"clientId"`
	ChatID   string `json:"chatId"`
	Text     string `json:"text"`
}
