package enhance

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/draftforge/draftforge/internal/embed"
	"github.com/draftforge/draftforge/internal/llm"
	"github.com/draftforge/draftforge/internal/prompt"
	"github.com/draftforge/draftforge/internal/retrieval"
	"github.com/draftforge/draftforge/internal/schema"
	"github.com/draftforge/draftforge/internal/section"
	"github.com/draftforge/draftforge/internal/vecstore"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type mockProvider struct {
	mu      sync.Mutex
	replies []string
	calls   int
}

func (m *mockProvider) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.calls
	m.calls++
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	return m.replies[idx], nil
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// queriedSearcher returns the same hits for every query and counts the
// searches it served.
type queriedSearcher struct {
	mu      sync.Mutex
	hits    []vecstore.Point
	err     error
	queries int
}

func (q *queriedSearcher) Search(ctx context.Context, vector []float32, limit int, scope schema.Scope) ([]vecstore.Point, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queries++
	return q.hits, q.err
}

func newTestEnhancer(t *testing.T, mock *mockProvider, searcher *queriedSearcher) *Enhancer {
	t.Helper()
	embedder := embed.Func(func(ctx context.Context, text string) ([]float32, error) {
		return []float32{0.1}, nil
	})
	retriever := retrieval.New(embedder, searcher, nil, testLogger())
	invoker := llm.NewInvokerWith(mock, llm.Options{}, testLogger())
	prompts, err := prompt.Get(schema.StudyLegalStatement)
	if err != nil {
		t.Fatal(err)
	}
	gen := section.New(retriever, invoker, prompts, testLogger())
	return New(retriever, invoker, gen, prompts, testLogger())
}

func baseSection() schema.GeneratedSection {
	return schema.GeneratedSection{
		SectionID: "background",
		Title:     "Background",
		Content:   `{"textdata":"The lease commenced in 2021."}`,
		Element:   schema.ElementText,
	}
}

func TestEnhanceFillsGap(t *testing.T) {
	mock := &mockProvider{replies: []string{
		`[{"gap": "termination date missing", "query": "lease termination date"}]`,
		`{"textdata": "The lease commenced in 2021 and terminates on 28 February 2026."}`,
	}}
	searcher := &queriedSearcher{hits: []vecstore.Point{{
		ID:      1,
		Score:   0.9,
		Payload: map[string]any{"text": "The lease terminates on 28 February 2026 absent renewal.", "doc_name": "lease.pdf"},
	}}}
	e := newTestEnhancer(t, mock, searcher)

	sec := baseSection()
	if err := e.Enhance(context.Background(), &sec, schema.SectionConfig{}, schema.Scope{CaseID: "c"}); err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if !sec.Enhanced {
		t.Fatal("Enhanced flag not set")
	}
	if !strings.Contains(sec.Content, "28 February 2026") {
		t.Errorf("Content = %q, want merged termination date", sec.Content)
	}
	if !strings.HasPrefix(sec.Content, `{"textdata":`) {
		t.Errorf("Content = %q, want validated shape", sec.Content)
	}
	if len(sec.Explanation.Evidence) == 0 {
		t.Error("no evidence recorded from gap retrieval")
	}
	// gap analysis + merge call
	if mock.callCount() != 2 {
		t.Errorf("made %d LLM calls, want 2", mock.callCount())
	}
}

func TestEnhanceNoGapsIsSkip(t *testing.T) {
	mock := &mockProvider{replies: []string{`[]`}}
	e := newTestEnhancer(t, mock, &queriedSearcher{})

	sec := baseSection()
	before := sec.Content
	if err := e.Enhance(context.Background(), &sec, schema.SectionConfig{}, schema.Scope{CaseID: "c"}); err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if sec.Enhanced {
		t.Error("Enhanced set despite empty gap list")
	}
	if sec.Content != before {
		t.Errorf("Content changed on skip: %q", sec.Content)
	}
	if mock.callCount() != 1 {
		t.Errorf("made %d LLM calls, want 1 (critique only)", mock.callCount())
	}
}

func TestEnhanceMalformedCritiqueIsSkip(t *testing.T) {
	mock := &mockProvider{replies: []string{"I could not find any gaps, the section looks complete."}}
	e := newTestEnhancer(t, mock, &queriedSearcher{})

	sec := baseSection()
	before := sec.Content
	if err := e.Enhance(context.Background(), &sec, schema.SectionConfig{}, schema.Scope{CaseID: "c"}); err != nil {
		t.Fatalf("Enhance returned error for malformed critique: %v", err)
	}
	if sec.Enhanced || sec.Content != before {
		t.Error("section mutated after malformed critique")
	}
}

func TestEnhanceDropsInvalidGapsAndCaps(t *testing.T) {
	mock := &mockProvider{replies: []string{
		`[{"gap": "", "query": "dropped"}, {"gap": "a", "query": ""}, {"gap": "b", "query": "q1"}, {"gap": "c", "query": "q2"}, {"gap": "d", "query": "q3"}, {"gap": "e", "query": "q4"}]`,
		`{"textdata": "merged"}`,
	}}
	searcher := &queriedSearcher{hits: []vecstore.Point{{
		ID:      1,
		Score:   0.5,
		Payload: map[string]any{"text": "some supporting source sentence here.", "doc_name": "d.pdf"},
	}}}
	e := newTestEnhancer(t, mock, searcher)

	sec := baseSection()
	if err := e.Enhance(context.Background(), &sec, schema.SectionConfig{}, schema.Scope{CaseID: "c"}); err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	// Two invalid entries dropped, then capped at 3 retrievals.
	if searcher.queries != 3 {
		t.Errorf("ran %d gap retrievals, want 3", searcher.queries)
	}
}

func TestEnhanceGapRetrievalFailureIsSkip(t *testing.T) {
	mock := &mockProvider{replies: []string{
		`[{"gap": "missing info", "query": "find it"}]`,
	}}
	searcher := &queriedSearcher{err: errors.New("search down")}
	e := newTestEnhancer(t, mock, searcher)

	sec := baseSection()
	before := sec.Content
	if err := e.Enhance(context.Background(), &sec, schema.SectionConfig{}, schema.Scope{CaseID: "c"}); err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if sec.Enhanced || sec.Content != before {
		t.Error("section mutated although every gap retrieval came back empty")
	}
	if mock.callCount() != 1 {
		t.Errorf("made %d LLM calls, want 1 (no merge without context)", mock.callCount())
	}
}

func TestEnhanceEmptyContentIsSkip(t *testing.T) {
	mock := &mockProvider{}
	e := newTestEnhancer(t, mock, &queriedSearcher{})

	sec := baseSection()
	sec.Content = ""
	if err := e.Enhance(context.Background(), &sec, schema.SectionConfig{}, schema.Scope{CaseID: "c"}); err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if mock.callCount() != 0 {
		t.Errorf("made %d LLM calls for empty section, want 0", mock.callCount())
	}
}
