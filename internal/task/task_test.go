package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPreservesOrder(t *testing.T) {
	for _, size := range []int{0, 1, 4} {
		exec := NewExecutor(size)
		items := []int{1, 2, 3, 4, 5, 6, 7, 8}
		out, err := Map(context.Background(), exec, items, func(_ context.Context, n int) (int, error) {
			time.Sleep(time.Duration(8-n) * time.Millisecond)
			return n * n, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 4, 9, 16, 25, 36, 49, 64}, out)
	}
}

func TestMapBoundsConcurrency(t *testing.T) {
	exec := NewExecutor(3)
	var running, peak atomic.Int32
	_, err := Map(context.Background(), exec, make([]int, 20), func(context.Context, int) (struct{}, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestMapFailFast(t *testing.T) {
	boom := errors.New("boom")
	exec := NewExecutor(1)
	var calls atomic.Int32
	_, err := Map(context.Background(), exec, []int{0, 1, 2, 3}, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		if n == 1 {
			return 0, boom
		}
		return n, nil
	})
	require.ErrorIs(t, err, boom)

	var taskErr *Error
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, 1, taskErr.Index)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRunAllParallelFailure(t *testing.T) {
	boom := errors.New("boom")
	exec := NewExecutor(2)
	err := exec.RunAll(context.Background(),
		func(context.Context) error { return nil },
		func(context.Context) error { return boom },
		func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	)
	require.ErrorIs(t, err, boom)
}

func TestRun(t *testing.T) {
	exec := NewExecutor(1)
	require.NoError(t, exec.Run(context.Background(), func(context.Context) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, exec.Run(ctx, func(context.Context) error { return nil }), context.Canceled)
}
