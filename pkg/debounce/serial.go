package debounce

import (
	"context"
	"sync"

	"github.com/rxtech-lab/argo-stream/pkg/errors"
)

// SerialExecutor runs submitted functions one at a time on a single dedicated
// goroutine. It is the library's stand-in for an affinity-bound execution
// context: consumers that must touch single-threaded state can wrap it, and
// tests use it to verify that marshalling stays cancellable.
type SerialExecutor struct {
	work      chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewSerialExecutor starts the executor's goroutine.
func NewSerialExecutor() *SerialExecutor {
	e := &SerialExecutor{
		work: make(chan func()),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	go e.loop()

	return e
}

func (e *SerialExecutor) loop() {
	defer close(e.done)

	for {
		select {
		case fn := <-e.work:
			fn()
		case <-e.quit:
			return
		}
	}
}

// Execute submits fn to the executor goroutine. It blocks until the executor
// accepts the function or ctx is cancelled; it does not wait for fn to run.
func (e *SerialExecutor) Execute(ctx context.Context, fn func()) error {
	select {
	case e.work <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.quit:
		return errors.New(errors.ErrCodeExecutorClosed, "serial executor is closed")
	}
}

// Close stops the executor. Functions not yet accepted are dropped.
func (e *SerialExecutor) Close() error {
	e.closeOnce.Do(func() {
		close(e.quit)
	})
	<-e.done

	return nil
}

var _ Executor = (*SerialExecutor)(nil)
