package vecstore

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

	"github.com/draftforge/draftforge/internal/schema"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSearch(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/collections/case_documents/points/search", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"id": 1, "score": 0.91, "payload": map[string]any{"text": "clause one", "doc_name": "contract.pdf"}},
				{"id": 2, "score": 0.74, "payload": map[string]any{"text": "clause two", "doc_name": "annex.pdf"}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:    server.URL,
		APIKey:     "secret",
		Collection: "case_documents",
	}, testLogger())

	points, err := client.Search(context.Background(), []float32{0.1, 0.2}, 5, schema.Scope{
		CaseID: "case-7",
		DocIDs: []string{"doc-1"},
	})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 0.91, points[0].Score)

	assert.Equal(t, float64(5), gotBody["limit"])
	assert.Equal(t, true, gotBody["with_payload"])

	filter, ok := gotBody["filter"].(map[string]any)
	require.True(t, ok, "search body must carry a scope filter")
	must, ok := filter["must"].([]any)
	require.True(t, ok)
	require.Len(t, must, 2, "case_id and doc_id clauses")
}

func TestSearchNoFilterForEmptyScope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, hasFilter := body["filter"]
		assert.False(t, hasFilter, "empty scope must not send a filter")
		_ = json.NewEncoder(w).Encode(map[string]any{"result": []any{}})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Collection: "c"}, testLogger())
	points, err := client.Search(context.Background(), []float32{0.5}, 3, schema.Scope{})
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestSearchZeroLimit(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://unreachable.invalid", Collection: "c"}, testLogger())
	points, err := client.Search(context.Background(), []float32{0.5}, 0, schema.Scope{})
	require.NoError(t, err)
	assert.Nil(t, points)
}

func TestSearchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Collection: "missing"}, testLogger())
	_, err := client.Search(context.Background(), []float32{0.5}, 3, schema.Scope{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestChunkFromPoint(t *testing.T) {
	cases := []struct {
		name  string
		point Point
		want  schema.RetrievedChunk
	}{
		{
			name: "full payload",
			point: Point{
				ID:    7,
				Score: 0.8,
				Payload: map[string]any{
					"text":        "the tenant shall",
					"doc_name":    "lease.pdf",
					"doc_id":      "doc-42",
					"chunk_index": float64(3),
				},
			},
			want: schema.RetrievedChunk{
				Text:       "the tenant shall",
				SourceName: "lease.pdf",
				SourceID:   "doc-42",
				ChunkIndex: 3,
				Score:      0.8,
			},
		},
		{
			name: "alternate payload keys",
			point: Point{
				ID:    "uuid-1",
				Score: 0.5,
				Payload: map[string]any{
					"content": "from content key",
					"source":  "ingest.txt",
				},
			},
			want: schema.RetrievedChunk{
				Text:       "from content key",
				SourceName: "ingest.txt",
				SourceID:   "uuid-1",
				Score:      0.5,
			},
		},
		{
			name:  "empty payload keeps point id",
			point: Point{ID: 9, Score: 0.1, Payload: map[string]any{}},
			want:  schema.RetrievedChunk{SourceID: "9", Score: 0.1},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ChunkFromPoint(c.point))
		})
	}
}
