package timeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/home-timeline/internal/model"
)

func TestRebuild_InactiveUsesRecentWindow(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.MinItems = 2
		o.MinIDRange = 100
	})
	f.accounts(1, 100)
	f.follow(100, 1)
	f.simplePost(1, 1)
	for _, id := range []int64{150, 160, 170} {
		f.simplePost(id, 1)
	}
	_, err := f.engine.Cache.MarkRegenerating(f.ctx, 100, time.Hour)
	require.NoError(t, err)

	require.NoError(t, f.engine.Rebuilder.Rebuild(f.ctx, 100))

	assert.Equal(t, []Entry{ent(160, 160), ent(170, 170)}, f.entries(100))
	regenerating, err := f.engine.Cache.Regenerating(f.ctx, 100)
	require.NoError(t, err)
	assert.False(t, regenerating)
}

func TestRebuild_ActiveStartsAfterLastConsumedPost(t *testing.T) {
	f := newFixture(t)
	f.accounts(1, 100)
	f.follow(100, 1)

	now := time.Now()
	last := now.Add(-72 * time.Hour)
	current := now.Add(-time.Hour)
	f.user(100, &current, &last)

	// last + 48h 之前创建的帖子视为已读
	f.post(&model.Post{ID: 1, AccountID: 1, CreatedAt: last.Add(-time.Hour)})
	f.post(&model.Post{ID: 2, AccountID: 1, CreatedAt: last.Add(47 * time.Hour)})
	f.post(&model.Post{ID: 3, AccountID: 1, CreatedAt: last.Add(49 * time.Hour)})

	activity, err := f.engine.Tracker.Classify(f.ctx, 100)
	require.NoError(t, err)
	assert.True(t, activity.ContinuouslyActive)
	assert.Equal(t, int64(2), activity.LastConsumedPostID)

	require.NoError(t, f.engine.Rebuilder.Rebuild(f.ctx, 100))
	assert.Equal(t, []Entry{ent(3, 3)}, f.entries(100))
}

func TestRebuild_NewestReblogWins(t *testing.T) {
	f := newFixture(t)
	f.accounts(1, 2, 3, 100)
	f.follow(100, 2)
	f.follow(100, 3)
	f.simplePost(5, 1)
	f.reblog(6, 2, 5)
	f.reblog(7, 3, 5)

	require.NoError(t, f.engine.Rebuilder.Rebuild(f.ctx, 100))
	assert.Equal(t, []Entry{ent(7, 5)}, f.entries(100))
}

func TestRebuild_AppliesFilter(t *testing.T) {
	f := newFixture(t)
	f.accounts(1, 2, 100)
	f.follow(100, 1)
	f.simplePost(5, 1)
	f.post(&model.Post{ID: 6, AccountID: 1, Reply: true}) // 孤立回复
	f.post(&model.Post{ID: 7, AccountID: 1, Visibility: model.VisibilityDirect})

	require.NoError(t, f.engine.Rebuilder.Rebuild(f.ctx, 100))
	assert.Equal(t, []Entry{ent(5, 5)}, f.entries(100))
}

func TestRebuild_EnforcesBound(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.MaxItems = 3 })
	f.accounts(1, 100)
	f.follow(100, 1)
	f.seed(100, ent(1, 1), ent(2, 2), ent(3, 3))
	for _, id := range []int64{10, 11} {
		f.simplePost(id, 1)
	}

	require.NoError(t, f.engine.Rebuilder.Rebuild(f.ctx, 100))
	assert.Equal(t, []Entry{ent(3, 3), ent(10, 10), ent(11, 11)}, f.entries(100))
}

func TestRebuild_NoPostsStillClearsFlag(t *testing.T) {
	f := newFixture(t)
	f.accounts(100)
	_, err := f.engine.Cache.MarkRegenerating(f.ctx, 100, time.Hour)
	require.NoError(t, err)

	require.NoError(t, f.engine.Rebuilder.Rebuild(f.ctx, 100))
	regenerating, err := f.engine.Cache.Regenerating(f.ctx, 100)
	require.NoError(t, err)
	assert.False(t, regenerating)
}

func TestRebuild_ConcurrentCallsAreSafe(t *testing.T) {
	f := newFixture(t)
	f.accounts(1, 100)
	f.follow(100, 1)
	f.simplePost(5, 1)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.engine.Rebuilder.Rebuild(f.ctx, 100)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, []Entry{ent(5, 5)}, f.entries(100))
}
