// Package debounce provides a trailing-edge debounced executor.
//
// A Debouncer collapses a burst of Trigger calls into at most one action
// execution, run with the payload of the last call once a quiet period has
// elapsed. Superseded timers and in-flight actions are cancelled through a
// latest-wins cancellation source, so a high-frequency event source (a
// pointer hover, a rapid symbol reselect) can never stack up expensive work
// behind itself.
package debounce

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/rxtech-lab/argo-stream/pkg/cancellation"
	"github.com/rxtech-lab/argo-stream/pkg/errors"
	"go.uber.org/zap"
)

// DefaultDelay is the quiet period used when no delay is configured. It is
// tuned for UI-facing consumers; the stream reconnect delay is a separate,
// unrelated knob.
const DefaultDelay = 50 * time.Millisecond

// Action is the unit of work scheduled by Trigger. The context is cancelled
// when a newer Trigger supersedes this execution or when the Debouncer is
// cancelled or closed. Actions must honour the context to stop promptly.
type Action[T any] func(ctx context.Context, payload T) error

// Executor marshals a function onto a target execution context, such as a
// single goroutine with affinity requirements. Execute must honour ctx while
// waiting for the target, so a busy target cannot stall the debounce chain.
type Executor interface {
	Execute(ctx context.Context, fn func()) error
}

// Option configures a Debouncer.
type Option[T any] func(*Debouncer[T])

// WithExecutor routes action execution through the given Executor instead of
// running it on the timer goroutine.
func WithExecutor[T any](executor Executor) Option[T] {
	return func(d *Debouncer[T]) {
		d.executor = executor
	}
}

// Debouncer schedules one action per burst of triggers. Trigger is
// fire-and-forget: execution errors other than cancellation are logged, never
// returned.
type Debouncer[T any] struct {
	delay    time.Duration
	logger   *zap.Logger
	source   *cancellation.Source
	executor Executor
}

// New creates a Debouncer with the given quiet period. A non-positive delay
// falls back to DefaultDelay.
func New[T any](delay time.Duration, logger *zap.Logger, opts ...Option[T]) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Debouncer[T]{
		delay:  delay,
		logger: logger,
		source: cancellation.NewSource(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Trigger cancels any pending timer and any in-flight action from a previous
// call, then schedules action(payload) to run after the quiet period. For any
// burst of calls spaced closer than the delay, zero or one action runs, with
// the payload of the last call. Triggering a closed Debouncer is a no-op.
func (d *Debouncer[T]) Trigger(payload T, action Action[T]) {
	ctx, err := d.source.Acquire()
	if err != nil {
		d.logger.Debug("trigger on closed debouncer ignored")

		return
	}

	go d.run(ctx, payload, action)
}

// Cancel cancels the pending timer and any in-flight action without
// scheduling new work.
func (d *Debouncer[T]) Cancel() {
	d.source.CancelCurrent()
}

// Close cancels outstanding work and rejects further triggers.
func (d *Debouncer[T]) Close() error {
	return d.source.Close()
}

func (d *Debouncer[T]) run(ctx context.Context, payload T, action Action[T]) {
	defer func() {
		if r := recover(); r != nil {
			d.report(errors.Newf(errors.ErrCodeExecuteFailed, "debounced action panicked: %v", r))
		}
	}()

	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	if d.executor == nil {
		d.report(action(ctx, payload))

		return
	}

	if err := d.executor.Execute(ctx, func() {
		d.report(action(ctx, payload))
	}); err != nil {
		d.report(fmt.Errorf("failed to marshal debounced action: %w", err))
	}
}

// report routes non-cancellation errors to the log sink. Cancellation is
// expected control flow for a superseded execution, never a fault.
func (d *Debouncer[T]) report(err error) {
	if err == nil {
		return
	}

	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return
	}

	d.logger.Error("debounced action failed", zap.Error(err))
}
