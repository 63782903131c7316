// Package rerank provides a cross-encoder reranking client. Reranking
// re-scores (query, candidate) pairs with a more precise model before
// truncating to top-k; the retriever falls back to search order when the
// reranker is unreachable.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Scorer scores candidate texts against a query. Implementations must
// return one score per candidate, in candidate order.
type Scorer interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Func adapts a plain function to the Scorer interface.
type Func func(ctx context.Context, query string, texts []string) ([]float64, error)

// Score implements Scorer.
func (f Func) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	return f(ctx, query, texts)
}

// Config configures the reranker client.
type Config struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// DefaultConfig returns defaults for a self-hosted cross-encoder service.
func DefaultConfig() Config {
	return Config{
		Model:   "BAAI/bge-reranker-v2-m3",
		Timeout: 30 * time.Second,
	}
}

// Client calls a cross-encoder reranker over HTTP.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a reranker client.
func NewClient(config Config, logger *logrus.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// Score posts the (query, texts) batch to the reranker endpoint and returns
// the parallel score list. A response whose score count does not match the
// candidate count is an error; callers treat any error as rerank failure
// and keep the original ordering.
func (c *Client) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if c.config.Endpoint == "" {
		return nil, fmt.Errorf("rerank: no endpoint configured")
	}

	reqBody := map[string]any{
		"model":     c.config.Model,
		"query":     query,
		"documents": texts,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("rerank: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("rerank: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank: status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("rerank: decode response: %w", err)
	}
	if len(result.Scores) != len(texts) {
		return nil, fmt.Errorf("rerank: got %d scores for %d candidates", len(result.Scores), len(texts))
	}

	c.logger.WithField("candidates", len(texts)).Debug("rerank completed")
	return result.Scores, nil
}
