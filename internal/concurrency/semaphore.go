// Package concurrency provides a counting semaphore used to cap the
// coherence-review and coherence-fix fan-outs against downstream LLM
// rate limits.
package concurrency

import (
	"context"
	"sync"
)

// Semaphore is a channel-backed counting semaphore with an instrumented
// in-flight counter. Current and Peak exist so tests can verify the
// concurrency bound is honored.
type Semaphore struct {
	ch      chan struct{}
	mu      sync.Mutex
	current int
	peak    int
}

// New creates a semaphore admitting at most max concurrent holders.
func New(max int) *Semaphore {
	if max < 1 {
		max = 1
	}
	return &Semaphore{ch: make(chan struct{}, max)}
}

// Acquire blocks until a slot is available or the context is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		s.mu.Lock()
		s.current++
		if s.current > s.peak {
			s.peak = s.current
		}
		s.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot. Releasing an unheld semaphore is a no-op.
func (s *Semaphore) Release() {
	select {
	case <-s.ch:
		s.mu.Lock()
		if s.current > 0 {
			s.current--
		}
		s.mu.Unlock()
	default:
	}
}

// Current returns the number of slots held right now.
func (s *Semaphore) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Peak returns the highest number of simultaneously held slots observed.
func (s *Semaphore) Peak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}
