package cancellation

import (
	"context"
	"sync"
	"testing"

	"github.com/rxtech-lab/argo-stream/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SourceTestSuite struct {
	suite.Suite
}

func TestSourceSuite(t *testing.T) {
	suite.Run(t, new(SourceTestSuite))
}

func (suite *SourceTestSuite) TestAcquireReturnsLiveContext() {
	source := NewSource()
	defer source.Close()

	ctx, err := source.Acquire()
	suite.NoError(err)
	suite.NoError(ctx.Err())
	suite.False(source.Canceled())
}

func (suite *SourceTestSuite) TestLatestWins() {
	source := NewSource()
	defer source.Close()

	// All contexts except the last must be cancelled by the time the final
	// Acquire returns.
	contexts := make([]context.Context, 0, 5)

	for i := 0; i < 5; i++ {
		ctx, err := source.Acquire()
		suite.NoError(err)
		contexts = append(contexts, ctx)
	}

	for _, ctx := range contexts[:len(contexts)-1] {
		suite.ErrorIs(ctx.Err(), context.Canceled)
	}

	suite.NoError(contexts[len(contexts)-1].Err())
}

func (suite *SourceTestSuite) TestAcquireLinkedFollowsParent() {
	source := NewSource()
	defer source.Close()

	parent, cancelParent := context.WithCancel(context.Background())
	defer cancelParent()

	ctx, err := source.AcquireLinked(parent)
	suite.NoError(err)
	suite.NoError(ctx.Err())

	cancelParent()
	<-ctx.Done()
	suite.ErrorIs(ctx.Err(), context.Canceled)
	suite.True(source.Canceled())
}

func (suite *SourceTestSuite) TestCancelCurrent() {
	source := NewSource()
	defer source.Close()

	ctx, err := source.Acquire()
	suite.NoError(err)

	source.CancelCurrent()
	suite.ErrorIs(ctx.Err(), context.Canceled)
	suite.True(source.Canceled())

	// Cancelling again must not panic.
	source.CancelCurrent()
}

func (suite *SourceTestSuite) TestCanceledWithoutAcquire() {
	source := NewSource()
	defer source.Close()

	suite.True(source.Canceled())
}

func (suite *SourceTestSuite) TestCloseCancelsAndRejects() {
	source := NewSource()

	ctx, err := source.Acquire()
	suite.NoError(err)

	suite.NoError(source.Close())
	suite.ErrorIs(ctx.Err(), context.Canceled)

	_, err = source.Acquire()
	suite.True(errors.HasCode(err, errors.ErrCodeSourceClosed))

	// Close is idempotent.
	suite.NoError(source.Close())
}

func (suite *SourceTestSuite) TestConcurrentAcquire() {
	source := NewSource()
	defer source.Close()

	var wg sync.WaitGroup

	contexts := make([]context.Context, 32)

	for i := range contexts {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			ctx, err := source.Acquire()
			suite.NoError(err)
			contexts[i] = ctx
		}(i)
	}

	wg.Wait()

	// Exactly one context may still be live once the dust settles.
	live := 0

	for _, ctx := range contexts {
		if ctx.Err() == nil {
			live++
		}
	}

	suite.LessOrEqual(live, 1)
}
