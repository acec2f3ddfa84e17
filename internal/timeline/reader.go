package timeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/d60-Lab/home-timeline/internal/model"
)

// Reader 读路径：缓存优先，不足部分回源数据库
type Reader struct {
	cache  *Cache
	store  PostStore
	filter *Filter
	opts   Options
}

func NewReader(cache *Cache, store PostStore, filter *Filter, opts Options) *Reader {
	return &Reader{cache: cache, store: store, filter: filter, opts: opts}
}

// Window 校验并补全分页区间。两端都给出时跨度不得超过 RangeSpan；
// 只给一端时按 RangeSpan 推出另一端；都未给出时 since 取最新帖子 ID 往前 MinIDRange，max 为 0 表示不设上界。
func (r *Reader) Window(ctx context.Context, maxID, sinceID *int64) (int64, int64, error) {
	switch {
	case maxID != nil && *maxID <= 0:
		return 0, 0, fmt.Errorf("max_id %d: %w", *maxID, ErrInvalidMaxID)
	case maxID == nil && sinceID == nil:
		latest, err := r.store.LatestPostID(ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("latest post id: %w", err)
		}
		return 0, max(latest-r.opts.MinIDRange, 0), nil
	case maxID == nil:
		return *sinceID + r.opts.RangeSpan, *sinceID, nil
	case sinceID == nil:
		return *maxID, max(*maxID-r.opts.RangeSpan, 0), nil
	case *maxID-*sinceID > r.opts.RangeSpan:
		return 0, 0, fmt.Errorf("max_id %d since_id %d: %w", *maxID, *sinceID, ErrRangeTooBroad)
	default:
		return *maxID, *sinceID, nil
	}
}

// ClampLimit 限制在 [1, MaxLimit]，非正数取默认值
func (r *Reader) ClampLimit(limit int) int {
	if limit <= 0 {
		return r.opts.DefaultLimit
	}
	return min(limit, r.opts.MaxLimit)
}

// Get 返回 (sinceID, maxID) 内最多 limit 条帖子，id 倒序。maxID 为 0 表示不设上界。
func (r *Reader) Get(ctx context.Context, t Type, accountID int64, limit int, maxID, sinceID int64) ([]*model.Post, error) {
	ctx, span := tracer.Start(ctx, "timeline.Get", trace.WithAttributes(
		attribute.String("timeline.type", string(t)),
		attribute.Int64("account.id", accountID),
	))
	defer span.End()

	limit = r.ClampLimit(limit)

	regenerating, err := r.cache.Regenerating(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("regeneration flag: %w", err)
	}
	if regenerating {
		posts, err := r.fromStore(ctx, accountID, limit, maxID, sinceID)
		if err != nil {
			return nil, err
		}
		readsTotal.WithLabelValues("regeneration").Add(float64(len(posts)))
		return posts, nil
	}

	cached, err := r.fromCache(ctx, t, accountID, limit, maxID, sinceID)
	if err != nil {
		return nil, err
	}
	readsTotal.WithLabelValues("cache").Add(float64(len(cached)))
	if len(cached) >= limit {
		return cached, nil
	}

	next := maxID
	if len(cached) > 0 {
		next = cached[len(cached)-1].ID
	}
	rest, err := r.fromStore(ctx, accountID, limit-len(cached), next, sinceID)
	if err != nil {
		return nil, err
	}
	readsTotal.WithLabelValues("store").Add(float64(len(rest)))
	return append(cached, rest...), nil
}

// fromCache 按分数取出帖子 ID 并回表；已删除的帖子自然消失
func (r *Reader) fromCache(ctx context.Context, t Type, accountID int64, limit int, maxID, sinceID int64) ([]*model.Post, error) {
	entries, err := r.cache.Range(ctx, t, accountID, maxID, sinceID, limit)
	if err != nil {
		return nil, fmt.Errorf("timeline range: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.Score
	}
	posts, err := r.store.PostsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate posts: %w", err)
	}
	return posts, nil
}

func (r *Reader) fromStore(ctx context.Context, accountID int64, limit int, maxID, sinceID int64) ([]*model.Post, error) {
	if limit <= 0 {
		return nil, nil
	}
	posts, err := r.store.HomeTimeline(ctx, accountID, limit, maxID, sinceID)
	if err != nil {
		return nil, fmt.Errorf("home timeline from store: %w", err)
	}
	out := make([]*model.Post, 0, len(posts))
	for _, p := range posts {
		filtered, err := r.filter.Filtered(ctx, p, accountID)
		if err != nil {
			return nil, err
		}
		if !filtered {
			out = append(out, p)
		}
	}
	return out, nil
}
