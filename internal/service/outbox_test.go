package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/home-timeline/internal/model"
	"github.com/d60-Lab/home-timeline/internal/timeline"
)

func TestOutbox_PublishFansOutToFollowersAndAuthor(t *testing.T) {
	e := setupEnv(t)
	for _, id := range []int64{1, 2, 3, 4, 5} {
		e.account(t, id)
	}
	for _, fan := range []int64{2, 3, 4} {
		require.NoError(t, e.follows.Create(e.ctx, fan, 1))
		require.NoError(t, e.fans.Create(e.ctx, 1, fan))
	}
	e.subscribe(t, 1, 2, 3, 4, 5)

	pub := NewPublisher(e.db)
	post, err := pub.Publish(e.ctx, PublishInput{AuthorID: 1, Text: "hello"})
	require.NoError(t, err)

	w := NewOutboxWorker(e.db, e.posts, e.fans, e.engine.Fanout, workerConfig())
	n, err := w.ProcessOnce(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	want := []timeline.Entry{{Score: post.ID, Member: post.ID}}
	for _, id := range []int64{1, 2, 3, 4} {
		assert.Equal(t, want, e.entries(t, id))
	}
	assert.Empty(t, e.entries(t, 5))

	var ob model.Outbox
	require.NoError(t, e.db.Where("post_id = ?", post.ID).First(&ob).Error)
	assert.Equal(t, model.OutboxDone, ob.Status)
	assert.Equal(t, int64(4), ob.FanoutCount)

	n, err = w.ProcessOnce(e.ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "done rows are not claimed again")
}

func TestOutbox_DirectPostSkipsHomeFanout(t *testing.T) {
	e := setupEnv(t)
	e.account(t, 1)
	e.account(t, 2)
	require.NoError(t, e.follows.Create(e.ctx, 2, 1))
	require.NoError(t, e.fans.Create(e.ctx, 1, 2))
	e.subscribe(t, 1, 2)

	_, err := NewPublisher(e.db).Publish(e.ctx, PublishInput{AuthorID: 1, Visibility: model.VisibilityDirect, Mentions: []int64{2}})
	require.NoError(t, err)

	w := NewOutboxWorker(e.db, e.posts, e.fans, e.engine.Fanout, workerConfig())
	_, err = w.ProcessOnce(e.ctx)
	require.NoError(t, err)
	assert.Empty(t, e.entries(t, 1))
	assert.Empty(t, e.entries(t, 2))
}

func TestOutbox_DeletedPostIsMarkedDone(t *testing.T) {
	e := setupEnv(t)
	e.account(t, 1)
	post, err := NewPublisher(e.db).Publish(e.ctx, PublishInput{AuthorID: 1})
	require.NoError(t, err)
	require.NoError(t, e.db.Delete(&model.Post{}, post.ID).Error)

	w := NewOutboxWorker(e.db, e.posts, e.fans, e.engine.Fanout, workerConfig())
	_, err = w.ProcessOnce(e.ctx)
	require.NoError(t, err)

	var ob model.Outbox
	require.NoError(t, e.db.Where("post_id = ?", post.ID).First(&ob).Error)
	assert.Equal(t, model.OutboxDone, ob.Status)
}

func TestOutbox_FailureIsRetriedThenMarkedFailed(t *testing.T) {
	e := setupEnv(t)
	e.account(t, 1)
	post, err := NewPublisher(e.db).Publish(e.ctx, PublishInput{AuthorID: 1})
	require.NoError(t, err)
	e.mr.Close()

	w := NewOutboxWorker(e.db, e.posts, e.fans, e.engine.Fanout, workerConfig())
	for i := 0; i < 2; i++ {
		_, err = w.ProcessOnce(e.ctx)
		require.NoError(t, err)
	}

	var ob model.Outbox
	require.NoError(t, e.db.Where("post_id = ?", post.ID).First(&ob).Error)
	assert.Equal(t, model.OutboxFailed, ob.Status)
	assert.Equal(t, 2, ob.Attempts)
	assert.NotEmpty(t, ob.LastError)
}

func TestOutbox_ReclaimsExpiredProcessingRows(t *testing.T) {
	e := setupEnv(t)
	e.account(t, 1)
	e.subscribe(t, 1)
	pub := NewPublisher(e.db)
	stale, err := pub.Publish(e.ctx, PublishInput{AuthorID: 1, Text: "stale"})
	require.NoError(t, err)
	fresh, err := pub.Publish(e.ctx, PublishInput{AuthorID: 1, Text: "fresh"})
	require.NoError(t, err)

	// 两行都停在 processing：一行租约已过期，一行仍在租约内
	long := time.Now().Add(-time.Hour)
	now := time.Now()
	require.NoError(t, e.db.Model(&model.Outbox{}).Where("post_id = ?", stale.ID).
		Updates(map[string]any{"status": model.OutboxProcessing, "claim_token": "crashed", "claimed_at": long}).Error)
	require.NoError(t, e.db.Model(&model.Outbox{}).Where("post_id = ?", fresh.ID).
		Updates(map[string]any{"status": model.OutboxProcessing, "claim_token": "running", "claimed_at": now}).Error)

	w := NewOutboxWorker(e.db, e.posts, e.fans, e.engine.Fanout, workerConfig())
	n, err := w.ProcessOnce(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []timeline.Entry{{Score: stale.ID, Member: stale.ID}}, e.entries(t, 1))

	var ob model.Outbox
	require.NoError(t, e.db.Where("post_id = ?", stale.ID).First(&ob).Error)
	assert.Equal(t, model.OutboxDone, ob.Status)
	assert.NotEqual(t, "crashed", ob.ClaimToken)

	require.NoError(t, e.db.Where("post_id = ?", fresh.ID).First(&ob).Error)
	assert.Equal(t, model.OutboxProcessing, ob.Status)
	assert.Equal(t, "running", ob.ClaimToken)
}

func TestOutbox_SettleKeepsNewerClaim(t *testing.T) {
	e := setupEnv(t)
	e.account(t, 1)
	post, err := NewPublisher(e.db).Publish(e.ctx, PublishInput{AuthorID: 1})
	require.NoError(t, err)

	w := NewOutboxWorker(e.db, e.posts, e.fans, e.engine.Fanout, workerConfig())
	claimed, err := w.claim(e.ctx)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	// 另一个实例在租约过期后接手
	require.NoError(t, e.db.Model(&model.Outbox{}).Where("post_id = ?", post.ID).Update("claim_token", "other").Error)
	w.handle(e.ctx, claimed[0])

	var ob model.Outbox
	require.NoError(t, e.db.Where("post_id = ?", post.ID).First(&ob).Error)
	assert.Equal(t, model.OutboxProcessing, ob.Status)
	assert.Equal(t, "other", ob.ClaimToken)
}

func TestPublisher_ReplyAndReblogResolution(t *testing.T) {
	e := setupEnv(t)
	e.account(t, 1)
	e.account(t, 2)
	pub := NewPublisher(e.db)

	parent, err := pub.Publish(e.ctx, PublishInput{AuthorID: 1})
	require.NoError(t, err)
	reply, err := pub.Publish(e.ctx, PublishInput{AuthorID: 2, InReplyToID: &parent.ID})
	require.NoError(t, err)
	assert.True(t, reply.Reply)
	assert.Equal(t, int64(1), *reply.InReplyToAccountID)

	boost, err := pub.Publish(e.ctx, PublishInput{AuthorID: 2, ReblogOfID: &parent.ID})
	require.NoError(t, err)
	boostOfBoost, err := pub.Publish(e.ctx, PublishInput{AuthorID: 1, ReblogOfID: &boost.ID})
	require.NoError(t, err)
	assert.Equal(t, parent.ID, *boostOfBoost.ReblogOfID)

	missing := int64(9999)
	_, err = pub.Publish(e.ctx, PublishInput{AuthorID: 1, InReplyToID: &missing})
	assert.ErrorIs(t, err, ErrParentNotFound)
	_, err = pub.Publish(e.ctx, PublishInput{AuthorID: 1, ReblogOfID: &missing})
	assert.ErrorIs(t, err, ErrOriginalNotFound)
}

func TestPublisher_RejectsReplyThatIsAlsoReblog(t *testing.T) {
	e := setupEnv(t)
	e.account(t, 1)
	e.account(t, 2)
	pub := NewPublisher(e.db)

	parent, err := pub.Publish(e.ctx, PublishInput{AuthorID: 1})
	require.NoError(t, err)
	_, err = pub.Publish(e.ctx, PublishInput{AuthorID: 2, InReplyToID: &parent.ID, ReblogOfID: &parent.ID})
	assert.ErrorIs(t, err, ErrReplyReblog)

	var posts, outbox int64
	require.NoError(t, e.db.Model(&model.Post{}).Count(&posts).Error)
	require.NoError(t, e.db.Model(&model.Outbox{}).Count(&outbox).Error)
	assert.Equal(t, int64(1), posts)
	assert.Equal(t, int64(1), outbox)
}
