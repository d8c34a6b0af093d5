package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vector, s.err
}

func TestQueryFiltersLowScores(t *testing.T) {
	var gotBody searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/kb/points/search", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"score": 0.91, "payload": map[string]string{"title": "Цены", "content": "Маникюр 2000р"}},
				{"score": 0.62, "payload": map[string]string{"title": "График", "content": "С 10 до 21"}},
				{"score": 0.31, "payload": map[string]string{"title": "Шум", "content": "нерелевантно"}},
			},
		})
	}))
	defer srv.Close()

	r := NewQdrantRetriever(srv.URL, "secret", "kb", 0.5, &stubEmbedder{vector: []float32{0.1, 0.2}}, zap.NewNop())
	chunks, err := r.Query(context.Background(), "сколько стоит маникюр", 3)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, "Цены", chunks[0].Title)
	assert.Equal(t, "График", chunks[1].Title)
	assert.Equal(t, 3, gotBody.Limit)
	assert.Equal(t, []float32{0.1, 0.2}, gotBody.Vector)
	assert.True(t, gotBody.WithPayload)
}

func TestQueryEmbedderFailure(t *testing.T) {
	r := NewQdrantRetriever("http://127.0.0.1:1", "", "kb", 0.5, &stubEmbedder{err: errors.New("quota")}, zap.NewNop())
	_, err := r.Query(context.Background(), "вопрос", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed")
}

func TestQueryServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewQdrantRetriever(srv.URL, "", "kb", 0.5, &stubEmbedder{vector: []float32{0.1}}, zap.NewNop())
	_, err := r.Query(context.Background(), "вопрос", 3)
	require.Error(t, err)
}
