package timeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/home-timeline/pkg/logger"
)

var ErrUnknownUser = errors.New("no local user for account")

// Activity 账号活跃度判定结果
type Activity struct {
	ContinuouslyActive bool
	// LastConsumedPostID 上次会话结束时已看过的最新帖子 ID
	LastConsumedPostID int64
}

// ActivityClassifier 重建时决定读取范围
type ActivityClassifier interface {
	Classify(ctx context.Context, accountID int64) (Activity, error)
}

// Tracker 记录登录活跃度，必要时标记时间线待重建
type Tracker struct {
	cache *Cache
	users UserStore
	posts PostStore
	queue RebuildQueue
	opts  Options
	now   func() time.Time
}

func NewTracker(cache *Cache, users UserStore, posts PostStore, queue RebuildQueue, opts Options) *Tracker {
	return &Tracker{cache: cache, users: users, posts: posts, queue: queue, opts: opts, now: time.Now}
}

// Classify 连续活跃：最近一次登录在持久期内，且与上一次登录的间隔也在持久期内
func (t *Tracker) Classify(ctx context.Context, accountID int64) (Activity, error) {
	u, err := t.users.GetByAccount(ctx, accountID)
	if err != nil {
		return Activity{}, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return Activity{}, nil
	}

	var a Activity
	now := t.now()
	if u.CurrentSignInAt != nil && u.CurrentSignInAt.After(now.Add(-t.opts.FeedPersistentDuration)) {
		a.ContinuouslyActive = u.LastSignInAt == nil ||
			u.LastSignInAt.After(u.CurrentSignInAt.Add(-t.opts.FeedPersistentDuration))
	}
	if u.LastSignInAt != nil {
		id, err := t.posts.LatestPostIDBefore(ctx, u.LastSignInAt.Add(t.opts.FeedUpdatedDuration))
		if err != nil {
			return Activity{}, fmt.Errorf("last consumed post: %w", err)
		}
		a.LastConsumedPostID = id
	}
	return a, nil
}

// Touch 处理一次带登录态的访问：刷新订阅标记，按需记录登录时间，
// 上一次会话过旧时置重建标记并入队重建。返回是否触发了重建。
func (t *Tracker) Touch(ctx context.Context, accountID int64) (bool, error) {
	u, err := t.users.GetByAccount(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return false, ErrUnknownUser
	}
	if err := t.cache.Subscribe(ctx, accountID, t.opts.SubscribedTTL); err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}

	now := t.now()
	if u.CurrentSignInAt != nil && !u.CurrentSignInAt.Before(now.Add(-t.opts.UpdateSignInDuration)) {
		return false, nil
	}
	if u, err = t.users.RecordSignIn(ctx, accountID, now); err != nil {
		return false, fmt.Errorf("record sign in: %w", err)
	}
	if u.LastSignInAt == nil || !u.LastSignInAt.Before(now.Add(-t.opts.FeedUpdatedDuration)) {
		return false, nil
	}
	return true, t.Regenerate(ctx, accountID)
}

// Bootstrap 新账号：标记订阅与待重建，然后入队重建
func (t *Tracker) Bootstrap(ctx context.Context, accountID int64) error {
	if err := t.cache.Subscribe(ctx, accountID, t.opts.SubscribedTTL); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return t.Regenerate(ctx, accountID)
}

// Regenerate 置重建标记（已存在则保留原过期时间）并入队重建
func (t *Tracker) Regenerate(ctx context.Context, accountID int64) error {
	if _, err := t.cache.MarkRegenerating(ctx, accountID, t.opts.RegenerationTTL); err != nil {
		return fmt.Errorf("mark regenerating: %w", err)
	}
	if t.queue == nil {
		return nil
	}
	if err := t.queue.EnqueueRebuild(ctx, accountID); err != nil {
		return fmt.Errorf("enqueue rebuild: %w", err)
	}
	logger.Info("timeline regeneration scheduled", zap.Int64("account_id", accountID))
	return nil
}
