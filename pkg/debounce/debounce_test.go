package debounce

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-stream/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type DebounceTestSuite struct {
	suite.Suite
}

func TestDebounceSuite(t *testing.T) {
	suite.Run(t, new(DebounceTestSuite))
}

// recorder collects executed payloads for assertions.
type recorder struct {
	mu       sync.Mutex
	payloads []int
}

func (r *recorder) action(_ context.Context, payload int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.payloads = append(r.payloads, payload)

	return nil
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]int, len(r.payloads))
	copy(out, r.payloads)

	return out
}

func (suite *DebounceTestSuite) TestSingleTriggerExecutes() {
	rec := &recorder{}
	d := New[int](20*time.Millisecond, zap.NewNop())

	defer d.Close()

	d.Trigger(42, rec.action)

	suite.Eventually(func() bool {
		got := rec.snapshot()

		return len(got) == 1 && got[0] == 42
	}, time.Second, 5*time.Millisecond)
}

func (suite *DebounceTestSuite) TestBurstCollapsesToLastPayload() {
	rec := &recorder{}
	d := New[int](50*time.Millisecond, zap.NewNop())

	defer d.Close()

	// Calls spaced well inside the quiet period must collapse into one
	// execution carrying the final payload.
	for i, payload := range []int{1, 2, 3, 4} {
		if i > 0 {
			time.Sleep(10 * time.Millisecond)
		}

		d.Trigger(payload, rec.action)
	}

	suite.Eventually(func() bool {
		got := rec.snapshot()

		return len(got) == 1 && got[0] == 4
	}, time.Second, 5*time.Millisecond)

	// And nothing else fires afterwards.
	time.Sleep(100 * time.Millisecond)
	suite.Equal([]int{4}, rec.snapshot())
}

func (suite *DebounceTestSuite) TestCancelBeforeDelayPreventsExecution() {
	rec := &recorder{}
	d := New[int](50*time.Millisecond, zap.NewNop())

	defer d.Close()

	d.Trigger(1, rec.action)
	d.Cancel()

	time.Sleep(120 * time.Millisecond)
	suite.Empty(rec.snapshot())
}

func (suite *DebounceTestSuite) TestTriggerCancelsInFlightAction() {
	started := make(chan struct{})
	cancelled := make(chan struct{})

	d := New[int](10*time.Millisecond, zap.NewNop())
	defer d.Close()

	d.Trigger(1, func(ctx context.Context, _ int) error {
		close(started)
		<-ctx.Done()
		close(cancelled)

		return ctx.Err()
	})

	<-started

	// A newer trigger must cancel the action that is already running.
	var second atomic.Int32

	d.Trigger(2, func(_ context.Context, payload int) error {
		second.Store(int32(payload))

		return nil
	})

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		suite.Fail("in-flight action was not cancelled by a newer trigger")
	}

	suite.Eventually(func() bool { return second.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func (suite *DebounceTestSuite) TestActionErrorGoesToSinkOnly() {
	core, logs := observer.New(zap.ErrorLevel)
	d := New[int](10*time.Millisecond, zap.New(core))

	defer d.Close()

	d.Trigger(1, func(context.Context, int) error {
		return errors.New(errors.ErrCodeExecuteFailed, "boom")
	})

	suite.Eventually(func() bool {
		return logs.FilterMessage("debounced action failed").Len() == 1
	}, time.Second, 5*time.Millisecond)
}

func (suite *DebounceTestSuite) TestCancellationIsNotLogged() {
	core, logs := observer.New(zap.ErrorLevel)
	d := New[int](10*time.Millisecond, zap.New(core))

	defer d.Close()

	d.Trigger(1, func(ctx context.Context, _ int) error {
		return context.Canceled
	})

	time.Sleep(100 * time.Millisecond)
	suite.Zero(logs.Len())
}

func (suite *DebounceTestSuite) TestActionPanicIsRecovered() {
	core, logs := observer.New(zap.ErrorLevel)
	d := New[int](10*time.Millisecond, zap.New(core))

	defer d.Close()

	d.Trigger(1, func(context.Context, int) error {
		panic("unexpected")
	})

	suite.Eventually(func() bool {
		return logs.FilterMessage("debounced action failed").Len() == 1
	}, time.Second, 5*time.Millisecond)
}

func (suite *DebounceTestSuite) TestTriggerAfterCloseIsNoOp() {
	rec := &recorder{}
	d := New[int](10*time.Millisecond, zap.NewNop())

	suite.NoError(d.Close())

	d.Trigger(1, rec.action)

	time.Sleep(50 * time.Millisecond)
	suite.Empty(rec.snapshot())
}

func (suite *DebounceTestSuite) TestExecutorMarshalsAction() {
	executor := NewSerialExecutor()
	defer executor.Close()

	rec := &recorder{}
	d := New[int](10*time.Millisecond, zap.NewNop(), WithExecutor[int](executor))

	defer d.Close()

	d.Trigger(7, rec.action)

	suite.Eventually(func() bool {
		got := rec.snapshot()

		return len(got) == 1 && got[0] == 7
	}, time.Second, 5*time.Millisecond)
}

func (suite *DebounceTestSuite) TestBusyExecutorDoesNotStallChain() {
	executor := NewSerialExecutor()
	defer executor.Close()

	// Occupy the executor so marshalling has to wait, then supersede the
	// waiting execution. The chain must move on without blocking.
	release := make(chan struct{})
	suite.NoError(executor.Execute(context.Background(), func() { <-release }))

	rec := &recorder{}
	d := New[int](5*time.Millisecond, zap.NewNop(), WithExecutor[int](executor))

	defer d.Close()

	d.Trigger(1, rec.action)
	time.Sleep(20 * time.Millisecond)
	d.Trigger(2, rec.action)

	close(release)

	suite.Eventually(func() bool {
		got := rec.snapshot()

		return len(got) == 1 && got[0] == 2
	}, time.Second, 5*time.Millisecond)
}

func (suite *DebounceTestSuite) TestSerialExecutorClosedError() {
	executor := NewSerialExecutor()
	suite.NoError(executor.Close())

	err := executor.Execute(context.Background(), func() {})
	suite.True(errors.HasCode(err, errors.ErrCodeExecutorClosed))
}
