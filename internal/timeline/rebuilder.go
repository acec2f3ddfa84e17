package timeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/d60-Lab/home-timeline/internal/model"
	"github.com/d60-Lab/home-timeline/pkg/logger"
)

// Rebuilder 从数据库整体重建首页时间线
type Rebuilder struct {
	cache      *Cache
	store      PostStore
	filter     *Filter
	classifier ActivityClassifier
	opts       Options
	group      singleflight.Group
}

func NewRebuilder(cache *Cache, store PostStore, filter *Filter, classifier ActivityClassifier, opts Options) *Rebuilder {
	return &Rebuilder{cache: cache, store: store, filter: filter, classifier: classifier, opts: opts}
}

// Rebuild 写入候选帖子并在同一事务中清除重建标记；同一账号的并发调用合并为一次
func (b *Rebuilder) Rebuild(ctx context.Context, accountID int64) error {
	_, err, _ := b.group.Do(strconv.FormatInt(accountID, 10), func() (any, error) {
		return nil, b.rebuild(ctx, accountID)
	})
	return err
}

func (b *Rebuilder) rebuild(ctx context.Context, accountID int64) error {
	ctx, span := tracer.Start(ctx, "timeline.Rebuild", trace.WithAttributes(attribute.Int64("account.id", accountID)))
	defer span.End()
	start := time.Now()

	activity, err := b.classifier.Classify(ctx, accountID)
	if err != nil {
		return err
	}
	mode := "inactive"
	if activity.ContinuouslyActive {
		mode = "active"
	}
	span.SetAttributes(attribute.String("rebuild.mode", mode))

	posts, err := b.candidates(ctx, accountID, activity)
	if err != nil {
		return err
	}

	// 从旧到新写入，同一原帖的多次转发以最新一次为准
	entries := make([]Entry, 0, len(posts))
	for i := len(posts) - 1; i >= 0; i-- {
		p := posts[i]
		filtered, err := b.filter.Filtered(ctx, p, accountID)
		if err != nil {
			return err
		}
		if filtered {
			continue
		}
		entries = append(entries, entryFor(p))
	}

	if err := b.cache.ReplaceAndClearRegeneration(ctx, Home, accountID, entries); err != nil {
		return fmt.Errorf("rebuild write: %w", err)
	}
	if err := b.cache.Trim(ctx, Home, accountID); err != nil {
		return fmt.Errorf("rebuild trim: %w", err)
	}

	rebuildDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	logger.Info("timeline rebuilt",
		zap.Int64("account_id", accountID),
		zap.String("mode", mode),
		zap.Int("entries", len(entries)),
	)
	return nil
}

func (b *Rebuilder) candidates(ctx context.Context, accountID int64, activity Activity) ([]*model.Post, error) {
	if activity.ContinuouslyActive {
		posts, err := b.store.HomeTimeline(ctx, accountID, b.opts.MaxItems, 0, activity.LastConsumedPostID)
		if err != nil {
			return nil, fmt.Errorf("rebuild candidates: %w", err)
		}
		return posts, nil
	}

	latest, err := b.store.LatestPostID(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest post id: %w", err)
	}
	if latest == 0 {
		return nil, nil
	}
	posts, err := b.store.HomeTimeline(ctx, accountID, b.opts.MinItems, 0, max(latest-b.opts.MinIDRange, 0))
	if err != nil {
		return nil, fmt.Errorf("rebuild candidates: %w", err)
	}
	return posts, nil
}

func entryFor(p *model.Post) Entry {
	if p.IsReblog() {
		return Entry{Score: p.ID, Member: *p.ReblogOfID}
	}
	return Entry{Score: p.ID, Member: p.ID}
}
