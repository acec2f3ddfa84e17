package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsJobOnSchedule(t *testing.T) {
	s := New(time.Second)
	var runs atomic.Int32
	require.NoError(t, s.AddJob("tick", "@every 1s", func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	s.Start()
	defer func() { _ = s.Stop(context.Background()) }()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	next, ok := s.Next("tick")
	assert.True(t, ok)
	assert.False(t, next.IsZero())
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := New(time.Second)
	err := s.AddJob("bad", "not a cron spec", func(context.Context) error { return nil })
	assert.Error(t, err)

	_, ok := s.Next("bad")
	assert.False(t, ok)
}

func TestScheduler_RunNowReturnsJobError(t *testing.T) {
	s := New(time.Second)
	boom := errors.New("boom")
	err := s.RunNow("cleanup", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return boom
	})
	assert.ErrorIs(t, err, boom)
}
