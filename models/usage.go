package models

import "time"

// UsageRecord is one row per model invocation, successful or not.
// Append-only; consumed externally for cost reporting.
type UsageRecord struct {
	ID       string `bson:"id" json:"id"`
	ClientID string `bson:"clientId,omitempty" json:"clientId,omitempty"`

	Model   string `bson:"model" json:"model"`
	Purpose string `bson:"purpose" json:"purpose"` // "chat", "embedding", "fact_extraction"

	PromptTokens     int `bson:"promptTokens" json:"promptTokens"`
	CompletionTokens int `bson:"completionTokens" json:"completionTokens"`
	TotalTokens      int `bson:"totalTokens" json:"totalTokens"`

	CostUSD float64 `bson:"costUsd" json:"costUsd"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// UsageStats is the aggregate admin view over usage records.
type UsageStats struct {
	Invocations  int64   `bson:"invocations" json:"invocations"`
	TotalTokens  int64   `bson:"totalTokens" json:"totalTokens"`
	TotalCostUSD float64 `bson:"totalCostUsd" json:"totalCostUsd"`
}
