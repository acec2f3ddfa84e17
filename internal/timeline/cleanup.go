package timeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/home-timeline/pkg/logger"
)

// Cleaner 删除长期未登录账号的时间线缓存，只影响缓存
type Cleaner struct {
	cache *Cache
	users UserStore
	opts  Options
	now   func() time.Time
}

func NewCleaner(cache *Cache, users UserStore, opts Options) *Cleaner {
	return &Cleaner{cache: cache, users: users, opts: opts, now: time.Now}
}

// Run 返回删除的时间线数量
func (c *Cleaner) Run(ctx context.Context) (int, error) {
	before := c.now().Add(-c.opts.FeedPersistentDuration)
	logger.Info("cleaning out expired home feeds", zap.Time("before", before))

	total := 0
	var after int64
	for {
		ids, err := c.users.FeedExpiredAccountIDs(ctx, before, after, c.opts.BatchSize)
		if err != nil {
			return total, fmt.Errorf("expired feeds: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		if err := c.cache.Delete(ctx, Home, ids...); err != nil {
			return total, fmt.Errorf("delete feeds: %w", err)
		}
		total += len(ids)
		cleanupDeleted.Add(float64(len(ids)))
		if len(ids) < c.opts.BatchSize {
			break
		}
		after = ids[len(ids)-1]
	}
	return total, nil
}
