// Package llm handles communication with LLM inference endpoints. It exposes
// a blocking completion interface, an optional streaming interface, and an
// Invoker wrapper that records per-call processing metadata for
// explainability.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider is the interface for LLM backends.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error)
}

// StreamingProvider is implemented by backends that can deliver the
// completion as an ordered sequence of text deltas. The accumulated text is
// returned after the stream drains; onDelta may be nil.
type StreamingProvider interface {
	Provider
	CompleteStream(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64, onDelta func(delta string)) (string, error)
}

// NewProvider is the factory for creating LLM providers. It is a package-level
// variable so tests can replace it with a mock without modifying the call site.
// Tests must restore the original value; use t.Cleanup to do so safely.
var NewProvider func(providerName, model string) (Provider, error) = defaultNewProvider

// Options configures completion calls issued through an Invoker.
type Options struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
}

// defaultNewProvider dispatches to the appropriate provider implementation.
func defaultNewProvider(providerName, model string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case "anthropic", "":
		return newAnthropicProvider(model)
	case "openai":
		return newOpenAIProvider(model)
	case "google":
		return newGoogleProvider(model)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", providerName)
	}
}
