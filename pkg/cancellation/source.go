// Package cancellation provides a latest-wins cancellation source.
//
// A Source owns at most one live context at a time. Acquiring a new context
// cancels the previous one, so for any burst of requests only the most recent
// holder can still make progress. Every "only the latest request matters"
// flow in the streaming client (symbol reselect, hover-driven lookups) shares
// this primitive instead of repeating its own cancel-then-replace logic.
package cancellation

import (
	"context"
	"sync"

	"github.com/rxtech-lab/argo-stream/pkg/errors"
)

// Source issues contexts with latest-wins semantics. The zero value is not
// usable; create one with NewSource.
type Source struct {
	mu      sync.Mutex
	current context.Context
	cancel  context.CancelFunc
	closed  bool
}

// NewSource creates a Source with no live context.
func NewSource() *Source {
	return &Source{}
}

// Acquire cancels the previously issued context, if any, and returns a fresh
// one. Returns ErrCodeSourceClosed after Close.
func (s *Source) Acquire() (context.Context, error) {
	return s.AcquireLinked(context.Background())
}

// AcquireLinked behaves like Acquire but the returned context is additionally
// cancelled when parent is cancelled.
func (s *Source) AcquireLinked(parent context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New(errors.ErrCodeSourceClosed, "cancellation source is closed")
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithCancel(parent)
	s.current = ctx
	s.cancel = cancel

	return ctx, nil
}

// CancelCurrent cancels the live context without issuing a new one. Safe to
// call when no context is live.
func (s *Source) CancelCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
}

// Canceled reports whether the current context is cancelled. A Source with no
// live context reports true.
func (s *Source) Canceled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return true
	}

	return s.current.Err() != nil
}

// Close cancels the live context and rejects further Acquire calls. Close is
// idempotent.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		s.current = nil
	}

	s.closed = true

	return nil
}
