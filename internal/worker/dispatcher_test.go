package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/home-timeline/config"
)

func newTestDispatcher(queue, attempts int) *Dispatcher {
	d := NewDispatcher(config.WorkerConfig{QueueSize: queue, MaxAttempts: attempts, JobTimeout: time.Second})
	d.backoff = func(int) time.Duration { return time.Millisecond }
	return d
}

func TestDispatcher_RunsJobs(t *testing.T) {
	d := newTestDispatcher(16, 1)
	stop := d.Start(2)

	var n atomic.Int32
	for i := 0; i < 10; i++ {
		_, err := d.Enqueue("count", func(context.Context) error { n.Add(1); return nil })
		require.NoError(t, err)
	}
	require.NoError(t, stop(context.Background()))
	assert.Equal(t, int32(10), n.Load())
}

func TestDispatcher_RetriesUntilSuccess(t *testing.T) {
	d := newTestDispatcher(16, 3)
	stop := d.Start(1)
	defer func() { _ = stop(context.Background()) }()

	var calls atomic.Int32
	done := make(chan struct{})
	_, err := d.Enqueue("flaky", func(context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not succeed after retries")
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	d := newTestDispatcher(16, 2)
	stop := d.Start(1)

	var calls atomic.Int32
	_, err := d.Enqueue("broken", func(context.Context) error {
		calls.Add(1)
		panic("boom")
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return calls.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, stop(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestDispatcher_QueueFull(t *testing.T) {
	d := newTestDispatcher(1, 1)

	_, err := d.Enqueue("a", func(context.Context) error { return nil })
	require.NoError(t, err)
	_, err = d.Enqueue("b", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestDispatcher_EnqueueAfterStop(t *testing.T) {
	d := newTestDispatcher(4, 1)
	stop := d.Start(1)
	require.NoError(t, stop(context.Background()))

	_, err := d.Enqueue("late", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrStopped)
}
