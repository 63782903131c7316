// Package retrieval implements the retrieve-rerank-assemble primitive: embed
// a query, similarity-search the case's document chunks, rerank the
// candidates with a cross-encoder, and assemble a deduplicated context block
// with provenance.
//
// Failures degrade instead of aborting: an embedding error yields an empty
// result, a reranker error falls back to the similarity-search order. The
// section pipeline above never sees a retrieval error.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/draftforge/draftforge/internal/embed"
	"github.com/draftforge/draftforge/internal/rerank"
	"github.com/draftforge/draftforge/internal/schema"
	"github.com/draftforge/draftforge/internal/vecstore"
)

// overfetchFactor is how many similarity-search candidates are pulled per
// requested result, leaving headroom for reranking and dedup.
const overfetchFactor = 10

// Searcher is the similarity-search dependency. *vecstore.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, vector []float32, limit int, scope schema.Scope) ([]vecstore.Point, error)
}

// Result is the assembled output of one retrieval call.
type Result struct {
	Context string
	Chunks  []schema.RetrievedChunk
	Sources []string
	Scores  []float64
	Steps   []schema.ProcessingStep
}

// Empty reports whether the retrieval produced no usable context.
func (r Result) Empty() bool { return len(r.Chunks) == 0 }

// Retriever wires the embedding, search, and rerank collaborators.
type Retriever struct {
	embedder embed.Embedder
	searcher Searcher
	reranker rerank.Scorer
	logger   *logrus.Logger
}

// New creates a Retriever. reranker may be nil, in which case results keep
// the similarity-search order.
func New(embedder embed.Embedder, searcher Searcher, reranker rerank.Scorer, logger *logrus.Logger) *Retriever {
	if logger == nil {
		logger = logrus.New()
	}
	return &Retriever{embedder: embedder, searcher: searcher, reranker: reranker, logger: logger}
}

// Retrieve runs the full primitive for one query. vector may be nil; it is
// computed from the query text when absent. k <= 0, a blank query, or an
// empty scope all return an empty Result without touching the network.
func (r *Retriever) Retrieve(ctx context.Context, query string, vector []float32, k int, scope schema.Scope) Result {
	var result Result
	query = strings.TrimSpace(query)
	if k <= 0 || query == "" || scope.Empty() {
		return result
	}

	// Embed. An embedding failure fails this call, not the pipeline.
	if vector == nil {
		start := time.Now()
		var err error
		vector, err = r.embedder.Embed(ctx, query)
		result.Steps = append(result.Steps, step("embed_query", start, err))
		if err != nil {
			r.logger.WithError(err).Warn("query embedding failed; returning empty context")
			return result
		}
	}

	// Similarity search with overfetch headroom.
	start := time.Now()
	points, err := r.searcher.Search(ctx, vector, k*overfetchFactor, scope)
	result.Steps = append(result.Steps, step("vector_search", start, err))
	if err != nil {
		r.logger.WithError(err).Warn("vector search failed; returning empty context")
		return result
	}
	if len(points) == 0 {
		return result
	}

	chunks := make([]schema.RetrievedChunk, 0, len(points))
	for _, p := range points {
		c := vecstore.ChunkFromPoint(p)
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		chunks = append(chunks, c)
	}

	chunks = r.rerankChunks(ctx, query, chunks, &result)
	if len(chunks) > k {
		chunks = chunks[:k]
	}

	assemble(chunks, &result)
	return result
}

// rerankChunks re-scores chunks with the cross-encoder and sorts descending.
// On any reranker failure the similarity-search order is kept.
func (r *Retriever) rerankChunks(ctx context.Context, query string, chunks []schema.RetrievedChunk, result *Result) []schema.RetrievedChunk {
	if r.reranker == nil || len(chunks) == 0 {
		return chunks
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	start := time.Now()
	scores, err := r.reranker.Score(ctx, query, texts)
	result.Steps = append(result.Steps, step("rerank", start, err))
	if err != nil || len(scores) != len(chunks) {
		r.logger.WithError(err).Warn("rerank failed; keeping search order")
		return chunks
	}

	for i := range chunks {
		chunks[i].Score = scores[i]
	}
	// Stable so chunks with equal scores keep their search order; ties never
	// disturb truncation.
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
	return chunks
}

// assemble joins chunk texts with source labels, deduplicating exact text
// matches, and fills the provenance lists.
func assemble(chunks []schema.RetrievedChunk, result *Result) {
	seen := make(map[string]bool, len(chunks))
	var blocks []string
	for _, c := range chunks {
		if seen[c.Text] {
			continue
		}
		seen[c.Text] = true
		label := c.SourceName
		if label == "" {
			label = c.SourceID
		}
		blocks = append(blocks, fmt.Sprintf("[Source %d: %s]\n%s", len(blocks)+1, label, c.Text))
		result.Chunks = append(result.Chunks, c)
		result.Sources = append(result.Sources, label)
		result.Scores = append(result.Scores, c.Score)
	}
	result.Context = strings.Join(blocks, "\n\n")
}

func step(name string, start time.Time, err error) schema.ProcessingStep {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return schema.ProcessingStep{
		Name:       name,
		DurationMS: time.Since(start).Milliseconds(),
		Detail:     detail,
	}
}
