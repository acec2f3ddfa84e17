package timeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/home-timeline/internal/model"
)

func TestWindow(t *testing.T) {
	f := newFixture(t)
	f.accounts(1)
	f.simplePost(300000, 1)

	cases := []struct {
		name      string
		maxID     *int64
		sinceID   *int64
		wantMax   int64
		wantSince int64
		wantErr   error
	}{
		{name: "span too broad", maxID: ptr[int64](262146), sinceID: ptr[int64](1), wantErr: ErrRangeTooBroad},
		{name: "span accepted", maxID: ptr[int64](262144), sinceID: ptr[int64](1), wantMax: 262144, wantSince: 1},
		{name: "span exactly at limit", maxID: ptr[int64](262145), sinceID: ptr[int64](1), wantMax: 262145, wantSince: 1},
		{name: "only since", sinceID: ptr[int64](10), wantMax: 10 + 262144, wantSince: 10},
		{name: "only max", maxID: ptr[int64](300000), wantMax: 300000, wantSince: 300000 - 262144},
		{name: "only small max", maxID: ptr[int64](100), wantMax: 100, wantSince: 0},
		{name: "neither", wantMax: 0, wantSince: 300000 - 262144},
		{name: "zero max", maxID: ptr[int64](0), wantErr: ErrInvalidMaxID},
		{name: "zero max with since", maxID: ptr[int64](0), sinceID: ptr[int64](0), wantErr: ErrInvalidMaxID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			maxID, sinceID, err := f.engine.Reader.Window(f.ctx, tc.maxID, tc.sinceID)
			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantMax, maxID)
			assert.Equal(t, tc.wantSince, sinceID)
		})
	}
}

func TestClampLimit(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, 20, f.engine.Reader.ClampLimit(0))
	assert.Equal(t, 20, f.engine.Reader.ClampLimit(-3))
	assert.Equal(t, 7, f.engine.Reader.ClampLimit(7))
	assert.Equal(t, 40, f.engine.Reader.ClampLimit(1000))
}

// readFixture 账号 100 关注作者 1；作者发了 1,2,3,4,10，其中 4 已删除
func readFixture(t *testing.T) *fixture {
	f := newFixture(t)
	f.accounts(1, 100)
	f.follow(100, 1)
	for _, id := range []int64{1, 2, 3, 4, 10} {
		f.simplePost(id, 1)
	}
	require.NoError(t, f.db.Delete(&model.Post{}, 4).Error)
	return f
}

func TestGet_CacheFirstSkipsDeletedPosts(t *testing.T) {
	f := readFixture(t)
	f.seed(100, ent(1, 1), ent(2, 2), ent(3, 3), ent(4, 4))

	posts, err := f.engine.Reader.Get(f.ctx, Home, 100, 3, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, postIDs(posts))

	again, err := f.engine.Reader.Get(f.ctx, Home, 100, 3, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, postIDs(posts), postIDs(again))
}

func TestGet_FillsFromStoreWhenCacheIsShort(t *testing.T) {
	f := readFixture(t)
	f.seed(100, ent(10, 10))

	posts, err := f.engine.Reader.Get(f.ctx, Home, 100, 3, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 3, 2}, postIDs(posts))
}

func TestGet_ExclusiveBounds(t *testing.T) {
	f := readFixture(t)
	f.seed(100, ent(1, 1), ent(2, 2), ent(3, 3), ent(10, 10))

	posts, err := f.engine.Reader.Get(f.ctx, Home, 100, 20, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, postIDs(posts))
}

func TestGet_ReblogEntryServesTheReblogPost(t *testing.T) {
	f := readFixture(t)
	f.accounts(2)
	f.follow(100, 2)
	f.reblog(20, 2, 1)
	f.seed(100, ent(20, 1))

	posts, err := f.engine.Reader.Get(f.ctx, Home, 100, 1, 0, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(20), posts[0].ID)
	require.NotNil(t, posts[0].Reblog)
	assert.Equal(t, int64(1), posts[0].Reblog.ID)
}

func TestGet_RegeneratingReadsStoreOnly(t *testing.T) {
	f := readFixture(t)
	f.seed(100, ent(999, 999))
	_, err := f.engine.Cache.MarkRegenerating(f.ctx, 100, time.Hour)
	require.NoError(t, err)

	posts, err := f.engine.Reader.Get(f.ctx, Home, 100, 3, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 3, 2}, postIDs(posts))
}

func TestGet_StoreFallbackIsFiltered(t *testing.T) {
	f := readFixture(t)
	f.accounts(5)
	f.simplePost(11, 5)
	// 作者 1 回复未关注的账号 5
	f.post(&model.Post{ID: 12, AccountID: 1, Reply: true, InReplyToID: ptr[int64](11), InReplyToAccountID: ptr[int64](5)})

	posts, err := f.engine.Reader.Get(f.ctx, Home, 100, 2, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, postIDs(posts))
}

func TestGet_OwnReplyToUnfollowedAccount(t *testing.T) {
	f := readFixture(t)
	f.accounts(5)
	f.simplePost(11, 5)
	f.post(&model.Post{ID: 12, AccountID: 100, Reply: true, InReplyToID: ptr[int64](11), InReplyToAccountID: ptr[int64](5)})

	posts, err := f.engine.Reader.Get(f.ctx, Home, 100, 2, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{12, 10}, postIDs(posts))
}

func TestGet_EmptyIsNotAnError(t *testing.T) {
	f := newFixture(t)
	f.accounts(100)

	posts, err := f.engine.Reader.Get(f.ctx, Home, 100, 20, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, posts)
}
