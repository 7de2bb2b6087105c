package lazy_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pilab-dev/identity-mongodb/internal/lazy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_RunsFactoryOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	v := lazy.New(func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	})

	const waiters = 50
	var wg sync.WaitGroup
	results := make(chan int, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := v.Get(context.Background())
			assert.NoError(t, err)
			results <- got
		}()
	}

	// Give the goroutines a chance to pile up on the in-flight attempt.
	time.Sleep(20 * time.Millisecond)
	assert.False(t, v.Done())
	close(release)
	wg.Wait()
	close(results)

	for got := range results {
		assert.Equal(t, 42, got)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, v.Done())

	got, err := v.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestValue_FailureIsNotCached(t *testing.T) {
	boom := errors.New("index build failed")
	var calls atomic.Int32

	v := lazy.New(func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", boom
		}
		return "ready", nil
	})

	_, err := v.Get(context.Background())
	require.ErrorIs(t, err, boom)
	assert.False(t, v.Done())

	got, err := v.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ready", got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestValue_WaiterHonoursOwnContext(t *testing.T) {
	release := make(chan struct{})
	var factoryCtxErr error

	v := lazy.New(func(ctx context.Context) (int, error) {
		<-release
		factoryCtxErr = ctx.Err()
		return 7, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := v.Get(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The attempt keeps running for the remaining callers.
	done := make(chan int)
	go func() {
		got, err := v.Get(context.Background())
		assert.NoError(t, err)
		done <- got
	}()
	close(release)

	select {
	case got := <-done:
		assert.Equal(t, 7, got)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never received the value")
	}
	assert.NoError(t, factoryCtxErr)
}

func TestValue_CancelledContextSkipsAttempt(t *testing.T) {
	var calls atomic.Int32
	v := lazy.New(func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 1, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.Get(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), calls.Load())
}
