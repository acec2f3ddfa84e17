package timeline

import (
	"context"
	"time"

	"github.com/d60-Lab/home-timeline/internal/model"
)

// PostStore 持久层帖子查询，时间线缓存只读依赖它
type PostStore interface {
	HomeTimeline(ctx context.Context, accountID int64, limit int, maxID, sinceID int64) ([]*model.Post, error)
	PostsByIDs(ctx context.Context, ids []int64) ([]*model.Post, error)
	RecentByAuthor(ctx context.Context, authorID, sinceID int64, limit int) ([]*model.Post, error)
	AuthorPostIDsAfter(ctx context.Context, authorID, afterID int64, limit int) ([]int64, error)
	AuthoredAmong(ctx context.Context, authorID int64, ids []int64) ([]int64, error)
	LatestPostID(ctx context.Context) (int64, error)
	LatestPostIDBefore(ctx context.Context, t time.Time) (int64, error)
}

// UserStore 登录时间记录
type UserStore interface {
	GetByAccount(ctx context.Context, accountID int64) (*model.User, error)
	RecordSignIn(ctx context.Context, accountID int64, now time.Time) (*model.User, error)
	FeedExpiredAccountIDs(ctx context.Context, before time.Time, afterAccountID int64, limit int) ([]int64, error)
}

// RebuildQueue 异步重建任务入口
type RebuildQueue interface {
	EnqueueRebuild(ctx context.Context, accountID int64) error
}
