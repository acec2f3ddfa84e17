package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/home-timeline/internal/model"
)

var ErrPostNotFound = errors.New("post not found")

// homeVisibilities 首页时间线可见范围（私信不进时间线）
var homeVisibilities = []model.Visibility{model.VisibilityPublic, model.VisibilityUnlisted, model.VisibilityPrivate}

type PostRepository interface {
	Get(ctx context.Context, id int64) (*model.Post, error)
	// PostsByIDs 返回未删除的帖子，按 id 倒序，附带作者/转发原帖/提及
	PostsByIDs(ctx context.Context, ids []int64) ([]*model.Post, error)
	// HomeTimeline 账号自己及其关注者的帖子，(sinceID, maxID) 开区间，id 倒序
	HomeTimeline(ctx context.Context, accountID int64, limit int, maxID, sinceID int64) ([]*model.Post, error)
	// RecentByAuthor 作者 id > sinceID 的最新帖子，id 倒序
	RecentByAuthor(ctx context.Context, authorID, sinceID int64, limit int) ([]*model.Post, error)
	// AuthorPostIDsAfter 作者 id > afterID 的帖子 ID（含已删除），升序游标分页
	AuthorPostIDsAfter(ctx context.Context, authorID, afterID int64, limit int) ([]int64, error)
	// AuthoredAmong 在 ids 中筛出属于作者的帖子 ID（含已删除）
	AuthoredAmong(ctx context.Context, authorID int64, ids []int64) ([]int64, error)
	// LatestPostID 最新帖子 ID；没有帖子时为 0
	LatestPostID(ctx context.Context) (int64, error)
	// LatestPostIDBefore created_at 早于 t 的最新帖子 ID；没有时为 0
	LatestPostIDBefore(ctx context.Context, t time.Time) (int64, error)
}

type postRepository struct{ db *gorm.DB }

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) hydrated(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Account").
		Preload("Reblog").
		Preload("Reblog.Account").
		Preload("Mentions")
}

func (r *postRepository) Get(ctx context.Context, id int64) (*model.Post, error) {
	var p model.Post
	if err := r.hydrated(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) PostsByIDs(ctx context.Context, ids []int64) ([]*model.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var res []*model.Post
	err := r.hydrated(ctx).Where("id IN ?", ids).Order("id DESC").Find(&res).Error
	return res, err
}

func (r *postRepository) HomeTimeline(ctx context.Context, accountID int64, limit int, maxID, sinceID int64) ([]*model.Post, error) {
	if limit <= 0 {
		return nil, nil
	}
	following := r.db.WithContext(ctx).Model(&model.Follow{}).Select("followee_id").Where("follower_id = ?", accountID)
	q := r.hydrated(ctx).
		Where("account_id = ? OR account_id IN (?)", accountID, following).
		Where("visibility IN ?", homeVisibilities)
	q = paginate(q, maxID, sinceID)

	var res []*model.Post
	err := q.Order("id DESC").Limit(limit).Find(&res).Error
	return res, err
}

func (r *postRepository) RecentByAuthor(ctx context.Context, authorID, sinceID int64, limit int) ([]*model.Post, error) {
	if limit <= 0 {
		return nil, nil
	}
	var res []*model.Post
	err := r.hydrated(ctx).
		Where("account_id = ? AND id > ?", authorID, sinceID).
		Order("id DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *postRepository) AuthorPostIDsAfter(ctx context.Context, authorID, afterID int64, limit int) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Unscoped().
		Model(&model.Post{}).
		Where("account_id = ? AND id > ?", authorID, afterID).
		Order("id").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *postRepository) AuthoredAmong(ctx context.Context, authorID int64, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var res []int64
	err := r.db.WithContext(ctx).Unscoped().
		Model(&model.Post{}).
		Where("account_id = ? AND id IN ?", authorID, ids).
		Pluck("id", &res).Error
	return res, err
}

func (r *postRepository) LatestPostID(ctx context.Context) (int64, error) {
	var id int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).Select("COALESCE(MAX(id), 0)").Scan(&id).Error
	return id, err
}

func (r *postRepository) LatestPostIDBefore(ctx context.Context, t time.Time) (int64, error) {
	var id int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).
		Select("COALESCE(MAX(id), 0)").
		Where("created_at < ?", t).
		Scan(&id).Error
	return id, err
}

// paginate 以开区间 (sinceID, maxID) 过滤；0 表示不限
func paginate(q *gorm.DB, maxID, sinceID int64) *gorm.DB {
	if maxID > 0 {
		q = q.Where("id < ?", maxID)
	}
	if sinceID > 0 {
		q = q.Where("id > ?", sinceID)
	}
	return q
}
