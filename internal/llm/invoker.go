package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/draftforge/draftforge/internal/schema"
)

// Invoker wraps a Provider with per-call processing metadata used for
// explainability. It is safe for concurrent use; the coherence fan-outs
// share a single Invoker.
type Invoker struct {
	provider Provider
	opts     Options
	logger   *logrus.Logger

	mu    sync.Mutex
	steps []schema.ProcessingStep
}

// NewInvoker builds an Invoker around the configured provider.
func NewInvoker(opts Options, logger *logrus.Logger) (*Invoker, error) {
	if logger == nil {
		logger = logrus.New()
	}
	provider, err := NewProvider(opts.Provider, opts.Model)
	if err != nil {
		return nil, fmt.Errorf("llm: create provider: %w", err)
	}
	return &Invoker{provider: provider, opts: opts, logger: logger}, nil
}

// NewInvokerWith builds an Invoker around an existing provider. Used by
// tests and by callers that construct providers themselves.
func NewInvokerWith(provider Provider, opts Options, logger *logrus.Logger) *Invoker {
	if logger == nil {
		logger = logrus.New()
	}
	return &Invoker{provider: provider, opts: opts, logger: logger}
}

// Generate issues a blocking completion for the named pipeline step and
// records its latency.
func (inv *Invoker) Generate(ctx context.Context, step, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	out, err := inv.provider.Complete(ctx, systemPrompt, userPrompt, inv.opts.MaxTokens, inv.opts.Temperature)
	inv.record(step, start, err)
	if err != nil {
		return "", fmt.Errorf("llm: %s: %w", step, err)
	}
	return out, nil
}

// GenerateStream issues a streaming completion when the provider supports
// it, falling back to a blocking call otherwise. The accumulated text is
// returned either way.
func (inv *Invoker) GenerateStream(ctx context.Context, step, systemPrompt, userPrompt string, onDelta func(string)) (string, error) {
	sp, ok := inv.provider.(StreamingProvider)
	if !ok {
		return inv.Generate(ctx, step, systemPrompt, userPrompt)
	}
	start := time.Now()
	out, err := sp.CompleteStream(ctx, systemPrompt, userPrompt, inv.opts.MaxTokens, inv.opts.Temperature, onDelta)
	inv.record(step, start, err)
	if err != nil {
		return "", fmt.Errorf("llm: %s: %w", step, err)
	}
	return out, nil
}

func (inv *Invoker) record(step string, start time.Time, err error) {
	elapsed := time.Since(start)
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	inv.mu.Lock()
	inv.steps = append(inv.steps, schema.ProcessingStep{
		Name:       step,
		DurationMS: elapsed.Milliseconds(),
		Detail:     detail,
	})
	inv.mu.Unlock()

	inv.logger.WithFields(logrus.Fields{
		"step":    step,
		"elapsed": elapsed.Round(time.Millisecond).String(),
		"failed":  err != nil,
	}).Debug("llm call completed")
}

// Steps returns a copy of all processing steps recorded so far.
func (inv *Invoker) Steps() []schema.ProcessingStep {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := make([]schema.ProcessingStep, len(inv.steps))
	copy(out, inv.steps)
	return out
}

// DrainSteps returns all recorded steps and resets the log. The section
// generator drains between sections so each explanation carries only its
// own calls.
func (inv *Invoker) DrainSteps() []schema.ProcessingStep {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := inv.steps
	inv.steps = nil
	return out
}
