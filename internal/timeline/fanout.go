package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/d60-Lab/home-timeline/internal/model"
	"github.com/d60-Lab/home-timeline/pkg/logger"
)

// Fanout 写扩散：新帖子写入订阅者时间线
type Fanout struct {
	cache    *Cache
	filter   *Filter
	notifier Notifier
	opts     Options
	now      func() time.Time
}

func NewFanout(cache *Cache, filter *Filter, notifier Notifier, opts Options) *Fanout {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Fanout{cache: cache, filter: filter, notifier: notifier, opts: opts, now: time.Now}
}

// Publish 将 p 写入 subscriberIDs 中可见者的时间线，返回写入条数。
// 对同一 (订阅者, 帖子) 重复调用结果不变。
func (f *Fanout) Publish(ctx context.Context, t Type, subscriberIDs []int64, p *model.Post) (int, error) {
	ctx, span := tracer.Start(ctx, "timeline.Publish", trace.WithAttributes(
		attribute.String("timeline.type", string(t)),
		attribute.Int64("post.id", p.ID),
		attribute.Int("subscribers", len(subscriberIDs)),
	))
	defer span.End()

	ids := lo.Uniq(subscriberIDs)
	if t == Home {
		subscribed, err := f.cache.Subscribed(ctx, ids)
		if err != nil {
			return 0, fmt.Errorf("subscribed lookup: %w", err)
		}
		ids = subscribed
	}

	ids, err := f.filter.Subscribers(ctx, p, ids)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var inserts []Insert
	if p.IsReblog() {
		original := *p.ReblogOfID
		ranks, err := f.cache.RevRanks(ctx, t, ids, original)
		if err != nil {
			return 0, fmt.Errorf("reblog ranks: %w", err)
		}
		for _, id := range ids {
			// 原帖已在靠前位置时不再顶上来
			if rank, ok := ranks[id]; ok && rank < f.opts.ReblogRankThreshold {
				fanoutReblogSkips.Inc()
				continue
			}
			inserts = append(inserts, Insert{AccountID: id, Entry: Entry{Score: p.ID, Member: original}})
		}
	} else {
		inserts = lo.Map(ids, func(id int64, _ int) Insert {
			return Insert{AccountID: id, Entry: Entry{Score: p.ID, Member: p.ID}}
		})
	}
	if len(inserts) == 0 {
		return 0, nil
	}

	if err := f.cache.Add(ctx, t, inserts); err != nil {
		return 0, fmt.Errorf("timeline insert: %w", err)
	}
	touched := lo.Map(inserts, func(in Insert, _ int) int64 { return in.AccountID })
	if err := f.cache.Trim(ctx, t, touched...); err != nil {
		return 0, fmt.Errorf("timeline trim: %w", err)
	}
	fanoutInserts.WithLabelValues(string(t)).Add(float64(len(inserts)))

	now := f.now()
	f.notify(ctx, lo.Map(touched, func(id int64, _ int) Delivery {
		return Delivery{AccountID: id, Event: newEvent(EventUpdate, p.ID, now)}
	}))
	return len(inserts), nil
}

// NotifyMentions 向通过提及过滤的账号推送提及事件，返回接收者
func (f *Fanout) NotifyMentions(ctx context.Context, p *model.Post) ([]int64, error) {
	recipients, err := f.filter.Mentions(ctx, p)
	if err != nil {
		return nil, err
	}
	now := f.now()
	f.notify(ctx, lo.Map(recipients, func(id int64, _ int) Delivery {
		return Delivery{AccountID: id, Event: newEvent(EventMention, p.ID, now)}
	}))
	return recipients, nil
}

func (f *Fanout) notify(ctx context.Context, deliveries []Delivery) {
	if len(deliveries) == 0 {
		return
	}
	if err := f.notifier.Notify(ctx, deliveries); err != nil {
		notifyFailures.Inc()
		logger.Warn("timeline notify failed", zap.Int("deliveries", len(deliveries)), zap.Error(err))
	}
}
