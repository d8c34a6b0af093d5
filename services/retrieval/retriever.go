package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ntolkachev-gh/clientera-telegram-bot/models"

	"go.uber.org/zap"
)

// Embedder produces an embedding vector for a query string.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// QdrantRetriever answers knowledge-base queries against a Qdrant
// collection over its REST API. Stateless: (query, k) -> ranked chunks,
// score descending, entries below the minimum score dropped.
type QdrantRetriever struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	collection string
	minScore   float64
	embedder   Embedder
	logger     *zap.Logger
}

// NewQdrantRetriever creates a retriever over the given Qdrant collection.
func NewQdrantRetriever(baseURL, apiKey, collection string, minScore float64, embedder Embedder, logger *zap.Logger) *QdrantRetriever {
	return &QdrantRetriever{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		collection: collection,
		minScore:   minScore,
		embedder:   embedder,
		logger:     logger,
	}
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type searchResponse struct {
	Result []struct {
		Score   float64 `json:"score"`
		Payload struct {
			Title   string `json:"title"`
			Content string `json:"content"`
		} `json:"payload"`
	} `json:"result"`
}

// Query embeds the text and returns the top-k chunks above the minimum
// similarity score.
func (r *QdrantRetriever) Query(ctx context.Context, text string, k int) ([]models.Chunk, error) {
	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	body, err := json.Marshal(searchRequest{Vector: vector, Limit: k, WithPayload: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", r.baseURL, r.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("api-key", r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("knowledge base search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("knowledge base search returned status %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	var chunks []models.Chunk
	for _, item := range decoded.Result {
		// Low-relevance chunks are dropped, not padded in.
		if item.Score < r.minScore {
			continue
		}
		chunks = append(chunks, models.Chunk{
			Title:   item.Payload.Title,
			Content: item.Payload.Content,
			Score:   item.Score,
		})
	}
	r.logger.Debug("knowledge base query",
		zap.Int("returned", len(decoded.Result)),
		zap.Int("kept", len(chunks)))
	return chunks, nil
}
