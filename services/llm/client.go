package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	usageRepo "github.com/ntolkachev-gh/clientera-telegram-bot/database/repository/usage"
	"github.com/ntolkachev-gh/clientera-telegram-bot/models"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Client wraps the Gemini API for dialog completion, fact extraction and
// query embedding. The model is treated as an untrusted planner: its output
// is decoded into the closed action set at this boundary, and every
// invocation is logged to the usage sink regardless of outcome.
type Client struct {
	modelName string
	embedName string
	model     *genai.GenerativeModel
	factModel *genai.GenerativeModel
	embedder  *genai.EmbeddingModel
	usage     usageRepo.UsageRepository
	logger    *zap.Logger
}

// NewClient creates a Gemini-backed language model client.
func NewClient(apiKey, modelName, embedName string, usage usageRepo.UsageRepository, logger *zap.Logger) (*Client, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.7)

	factModel := client.GenerativeModel(modelName)
	factModel.ResponseMIMEType = "application/json"
	factModel.SetTemperature(0.3)

	return &Client{
		modelName: modelName,
		embedName: embedName,
		model:     model,
		factModel: factModel,
		embedder:  client.EmbeddingModel(embedName),
		usage:     usage,
		logger:    logger,
	}, nil
}

// Complete runs one dialog turn through the model and decodes the answer.
// A response the model failed to shape correctly comes back as an
// ActionUnrecognized output, never as an error: transport and timeout
// problems are the only error returns.
func (c *Client) Complete(ctx context.Context, req models.CompletionRequest) (*models.ModelOutput, error) {
	prompt := buildDialogPrompt(req)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	c.logUsage(req.ClientID, "chat", resp)
	if err != nil {
		return nil, fmt.Errorf("gemini generate error: %w", err)
	}

	raw := responseText(resp)
	out, err := models.ParseModelOutput(raw)
	if err != nil {
		c.logger.Warn("model returned undecodable output",
			zap.String("clientId", req.ClientID),
			zap.String("raw", truncate(raw, 200)),
			zap.Error(err))
		return &models.ModelOutput{Action: &models.ProposedAction{Type: models.ActionUnrecognized}}, nil
	}
	return out, nil
}

// ExtractFacts analyzes recent history and pulls out stable client
// preferences. Best effort; callers must tolerate an error.
func (c *Client) ExtractFacts(ctx context.Context, clientID string, history []models.Turn) (*models.ClientFacts, error) {
	if len(history) < 2 {
		return nil, nil
	}
	prompt := buildFactPrompt(history)

	resp, err := c.factModel.GenerateContent(ctx, genai.Text(prompt))
	c.logUsage(clientID, "fact_extraction", resp)
	if err != nil {
		return nil, fmt.Errorf("gemini fact extraction error: %w", err)
	}

	facts, err := parseFacts(responseText(resp))
	if err != nil {
		return nil, fmt.Errorf("failed to decode extracted facts: %w", err)
	}
	return facts, nil
}

// Embed returns the embedding vector for a query string.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := c.embedder.EmbedContent(ctx, genai.Text(text))
	c.logEmbeddingUsage()
	if err != nil {
		return nil, fmt.Errorf("gemini embed error: %w", err)
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("gemini embed returned no vector")
	}
	return res.Embedding.Values, nil
}

func (c *Client) logUsage(clientID, purpose string, resp *genai.GenerateContentResponse) {
	record := &models.UsageRecord{
		ID:       uuid.New().String(),
		ClientID: clientID,
		Model:    c.modelName,
		Purpose:  purpose,
	}
	if resp != nil && resp.UsageMetadata != nil {
		record.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		record.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		record.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	record.CostUSD = Cost(c.modelName, record.PromptTokens, record.CompletionTokens)
	record.CreatedAt = time.Now()

	if err := c.usage.Append(record); err != nil {
		c.logger.Warn("failed to append usage record", zap.Error(err))
	}
}

func (c *Client) logEmbeddingUsage() {
	// The embedding endpoint reports no token counts.
	record := &models.UsageRecord{
		ID:        uuid.New().String(),
		Model:     c.embedName,
		Purpose:   "embedding",
		CreatedAt: time.Now(),
	}
	if err := c.usage.Append(record); err != nil {
		c.logger.Warn("failed to append usage record", zap.Error(err))
	}
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
