package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_SweepsOnEveryTick(t *testing.T) {
	var calls atomic.Int64
	var gotWindow atomic.Int64

	sweeper := NewSweeper(func(_ context.Context, olderThan time.Duration) (int64, error) {
		calls.Add(1)
		gotWindow.Store(int64(olderThan))
		return 1, nil
	}, 5*time.Millisecond, 15*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	assert.Equal(t, int64(15*time.Minute), gotWindow.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancellation")
	}
}

func TestSweeper_KeepsRunningAfterFailure(t *testing.T) {
	var calls atomic.Int64

	sweeper := NewSweeper(func(context.Context, time.Duration) (int64, error) {
		if calls.Add(1) == 1 {
			return 0, errors.New("connection refused")
		}
		return 0, nil
	}, 5*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(ctx)

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond,
		"a failed sweep must not stop the loop")
}
