package rerank

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "BAAI/bge-reranker-v2-m3", body["model"])
		assert.Equal(t, "notice period", body["query"])
		docs, ok := body["documents"].([]any)
		require.True(t, ok)
		require.Len(t, docs, 3)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{"scores": []float64{0.1, 0.9, 0.4}})
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Endpoint = server.URL
	cfg.APIKey = "tok"
	client := NewClient(cfg, testLogger())

	scores, err := client.Score(context.Background(), "notice period", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.9, 0.4}, scores)
}

func TestScoreCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"scores": []float64{0.5}})
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL}, testLogger())
	_, err := client.Score(context.Background(), "q", []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1 scores for 2 candidates")
}

func TestScoreServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL}, testLogger())
	_, err := client.Score(context.Background(), "q", []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestScoreNoEndpoint(t *testing.T) {
	client := NewClient(Config{}, testLogger())
	_, err := client.Score(context.Background(), "q", []string{"a"})
	require.Error(t, err)
}

func TestScoreEmptyBatch(t *testing.T) {
	client := NewClient(Config{}, testLogger())
	scores, err := client.Score(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Nil(t, scores)
}
