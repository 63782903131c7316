// Package vecstore provides a minimal HTTP client for the Qdrant vector
// search API, scoped to the similarity-search calls the retrieval pipeline
// issues.
package vecstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/draftforge/draftforge/internal/schema"
)

// Config configures the vector store client.
type Config struct {
	BaseURL    string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// DefaultConfig returns a config pointing at a local Qdrant instance.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:6333",
		Collection: "case_documents",
		Timeout:    30 * time.Second,
	}
}

// Client talks to the Qdrant REST API.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a vector store client.
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

// Point is one scored match returned by a search.
type Point struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// Search runs a similarity search over the configured collection, filtered
// to the given scope. An empty scope searches the whole collection.
func (c *Client) Search(ctx context.Context, vector []float32, limit int, scope schema.Scope) ([]Point, error) {
	if limit <= 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if f := scopeFilter(scope); f != nil {
		reqBody["filter"] = f
	}

	path := fmt.Sprintf("/collections/%s/points/search", c.config.Collection)
	respBody, err := c.doRequest(ctx, http.MethodPost, path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("vecstore: search: %w", err)
	}

	var response struct {
		Result []Point `json:"result"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("vecstore: parse search response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"collection": c.config.Collection,
		"limit":      limit,
		"results":    len(response.Result),
	}).Debug("vector search completed")

	return response.Result, nil
}

// scopeFilter translates a Scope into a Qdrant payload filter. Nil means
// no constraint.
func scopeFilter(scope schema.Scope) map[string]any {
	var must []map[string]any
	if scope.CaseID != "" {
		must = append(must, map[string]any{
			"key":   "case_id",
			"match": map[string]any{"value": scope.CaseID},
		})
	}
	if len(scope.DocIDs) > 0 {
		must = append(must, map[string]any{
			"key":   "doc_id",
			"match": map[string]any{"any": scope.DocIDs},
		})
	}
	if must == nil {
		return nil
	}
	return map[string]any{"must": must}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	url := c.config.BaseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("api-key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// ChunkFromPoint maps a search point's payload onto a RetrievedChunk.
// Payload keys follow the ingestion convention: text/content, doc_name,
// doc_id, chunk_index.
func ChunkFromPoint(p Point) schema.RetrievedChunk {
	chunk := schema.RetrievedChunk{
		SourceID: fmt.Sprintf("%v", p.ID),
		Score:    p.Score,
	}
	if text, ok := p.Payload["text"].(string); ok {
		chunk.Text = text
	} else if content, ok := p.Payload["content"].(string); ok {
		chunk.Text = content
	}
	if name, ok := p.Payload["doc_name"].(string); ok {
		chunk.SourceName = name
	} else if source, ok := p.Payload["source"].(string); ok {
		chunk.SourceName = source
	}
	if id, ok := p.Payload["doc_id"].(string); ok {
		chunk.SourceID = id
	}
	if idx, ok := p.Payload["chunk_index"].(float64); ok {
		chunk.ChunkIndex = int(idx)
	}
	return chunk
}
