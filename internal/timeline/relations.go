package timeline

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/d60-Lab/home-timeline/pkg/logger"
)

// RelationHandler 关注/取关/屏蔽后对已缓存时间线的增量修复
type RelationHandler struct {
	cache  *Cache
	store  PostStore
	filter *Filter
	opts   Options
}

func NewRelationHandler(cache *Cache, store PostStore, filter *Filter, opts Options) *RelationHandler {
	return &RelationHandler{cache: cache, store: store, filter: filter, opts: opts}
}

// Merge into 新关注 from：把 from 最近 MergeWindow 条比 into 时间线最旧条目更新的帖子并入
func (h *RelationHandler) Merge(ctx context.Context, fromID, intoID int64) (int, error) {
	ctx, span := tracer.Start(ctx, "timeline.Merge", trace.WithAttributes(
		attribute.Int64("from.id", fromID), attribute.Int64("into.id", intoID)))
	defer span.End()

	oldest, err := h.cache.OldestScore(ctx, Home, intoID)
	if err != nil {
		return 0, fmt.Errorf("oldest score: %w", err)
	}
	posts, err := h.store.RecentByAuthor(ctx, fromID, oldest, h.opts.MergeWindow)
	if err != nil {
		return 0, fmt.Errorf("merge candidates: %w", err)
	}

	var inserts []Insert
	for i := len(posts) - 1; i >= 0; i-- {
		p := posts[i]
		if p.IsDirect() {
			continue
		}
		filtered, err := h.filter.Filtered(ctx, p, intoID)
		if err != nil {
			return 0, err
		}
		if filtered {
			continue
		}
		if p.IsReblog() {
			ranks, err := h.cache.RevRanks(ctx, Home, []int64{intoID}, *p.ReblogOfID)
			if err != nil {
				return 0, fmt.Errorf("reblog rank: %w", err)
			}
			if rank, ok := ranks[intoID]; ok && rank < h.opts.ReblogRankThreshold {
				continue
			}
		}
		inserts = append(inserts, Insert{AccountID: intoID, Entry: entryFor(p)})
	}

	if err := h.cache.Add(ctx, Home, inserts); err != nil {
		return 0, fmt.Errorf("merge insert: %w", err)
	}
	if err := h.cache.Trim(ctx, Home, intoID); err != nil {
		return 0, fmt.Errorf("merge trim: %w", err)
	}
	relationOps.WithLabelValues("merge").Add(float64(len(inserts)))
	logger.Debug("timeline merged", zap.Int64("from", fromID), zap.Int64("into", intoID), zap.Int("entries", len(inserts)))
	return len(inserts), nil
}

// Unmerge into 取关 from：分批删除 from 比最旧条目更新的帖子（原帖与其转发条目）
func (h *RelationHandler) Unmerge(ctx context.Context, fromID, intoID int64) (int, error) {
	ctx, span := tracer.Start(ctx, "timeline.Unmerge", trace.WithAttributes(
		attribute.Int64("from.id", fromID), attribute.Int64("into.id", intoID)))
	defer span.End()

	oldest, err := h.cache.OldestScore(ctx, Home, intoID)
	if err != nil {
		return 0, fmt.Errorf("oldest score: %w", err)
	}

	total := 0
	after := oldest
	for {
		ids, err := h.store.AuthorPostIDsAfter(ctx, fromID, after, h.opts.BatchSize)
		if err != nil {
			return total, fmt.Errorf("unmerge batch: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		if err := h.cache.RemovePosts(ctx, Home, intoID, ids); err != nil {
			return total, fmt.Errorf("unmerge remove: %w", err)
		}
		total += len(ids)
		if len(ids) < h.opts.BatchSize {
			break
		}
		after = ids[len(ids)-1]
	}
	relationOps.WithLabelValues("unmerge").Add(float64(total))
	return total, nil
}

// Purge 删除 accountID 时间线中所有原帖或转发属于 targetID 的条目，不论新旧
func (h *RelationHandler) Purge(ctx context.Context, accountID, targetID int64) (int, error) {
	ctx, span := tracer.Start(ctx, "timeline.Purge", trace.WithAttributes(
		attribute.Int64("account.id", accountID), attribute.Int64("target.id", targetID)))
	defer span.End()

	entries, err := h.cache.Entries(ctx, Home, accountID)
	if err != nil {
		return 0, fmt.Errorf("timeline entries: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	candidates := lo.Uniq(lo.FlatMap(entries, func(e Entry, _ int) []int64 { return []int64{e.Member, e.Score} }))
	owned := make(map[int64]struct{})
	for _, chunk := range lo.Chunk(candidates, h.opts.BatchSize) {
		ids, err := h.store.AuthoredAmong(ctx, targetID, chunk)
		if err != nil {
			return 0, fmt.Errorf("purge lookup: %w", err)
		}
		for _, id := range ids {
			owned[id] = struct{}{}
		}
	}

	members := lo.FilterMap(entries, func(e Entry, _ int) (int64, bool) {
		_, byMember := owned[e.Member]
		_, byScore := owned[e.Score]
		return e.Member, byMember || byScore
	})
	if err := h.cache.Remove(ctx, Home, accountID, members); err != nil {
		return 0, fmt.Errorf("purge remove: %w", err)
	}
	relationOps.WithLabelValues("purge").Add(float64(len(members)))
	return len(members), nil
}
