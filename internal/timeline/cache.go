package timeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry 时间线条目：普通帖子 Score == Member；转发 Score 为转发 ID，Member 为原帖 ID
type Entry struct {
	Score  int64
	Member int64
}

// Insert 写入某账号时间线的一条记录
type Insert struct {
	AccountID int64
	Entry
}

// Cache 基于 Redis 有序集合的时间线存储
type Cache struct {
	rdb      redis.UniversalClient
	maxItems int
}

func NewCache(rdb redis.UniversalClient, maxItems int) *Cache {
	return &Cache{rdb: rdb, maxItems: maxItems}
}

func (c *Cache) Key(t Type, accountID int64) string {
	return fmt.Sprintf("timeline:%s:%d", t, accountID)
}

func regenerationKey(accountID int64) string {
	return fmt.Sprintf("account:%d:regeneration", accountID)
}

func subscribedKey(accountID int64) string {
	return fmt.Sprintf("subscribed:%d", accountID)
}

// Add 管道批量 ZADD
func (c *Cache) Add(ctx context.Context, t Type, inserts []Insert) error {
	if len(inserts) == 0 {
		return nil
	}
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, in := range inserts {
			pipe.ZAdd(ctx, c.Key(t, in.AccountID), z(in.Entry))
		}
		return nil
	})
	return err
}

// RevRanks 管道查询 member 在各账号时间线中的倒序排名；不存在的账号不出现在结果中
func (c *Cache) RevRanks(ctx context.Context, t Type, accountIDs []int64, member int64) (map[int64]int64, error) {
	cmds := make([]*redis.IntCmd, len(accountIDs))
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		m := strconv.FormatInt(member, 10)
		for i, id := range accountIDs {
			cmds[i] = pipe.ZRevRank(ctx, c.Key(t, id), m)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	ranks := make(map[int64]int64, len(accountIDs))
	for i, cmd := range cmds {
		rank, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ranks[accountIDs[i]] = rank
	}
	return ranks, nil
}

// Trim 只保留分数最高的 maxItems 条；必须在对应写入执行后调用
func (c *Cache) Trim(ctx context.Context, t Type, accountIDs ...int64) error {
	if len(accountIDs) == 0 {
		return nil
	}
	stop := -int64(c.maxItems) - 1
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range accountIDs {
			pipe.ZRemRangeByRank(ctx, c.Key(t, id), 0, stop)
		}
		return nil
	})
	return err
}

// Range 按分数倒序读取 (sinceID, maxID) 开区间内最多 limit 条；maxID 为 0 表示不设上界
func (c *Cache) Range(ctx context.Context, t Type, accountID, maxID, sinceID int64, limit int) ([]Entry, error) {
	upper := "+inf"
	if maxID > 0 {
		upper = "(" + strconv.FormatInt(maxID, 10)
	}
	lower := "(" + strconv.FormatInt(sinceID, 10)
	zs, err := c.rdb.ZRevRangeByScoreWithScores(ctx, c.Key(t, accountID), &redis.ZRangeBy{
		Max:   upper,
		Min:   lower,
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}
	return entries(zs)
}

// OldestScore 最小分数；时间线为空时为 0
func (c *Cache) OldestScore(ctx context.Context, t Type, accountID int64) (int64, error) {
	zs, err := c.rdb.ZRangeWithScores(ctx, c.Key(t, accountID), 0, 0).Result()
	if err != nil {
		return 0, err
	}
	if len(zs) == 0 {
		return 0, nil
	}
	return int64(zs[0].Score), nil
}

// Entries 全部条目，按分数升序
func (c *Cache) Entries(ctx context.Context, t Type, accountID int64) ([]Entry, error) {
	zs, err := c.rdb.ZRangeWithScores(ctx, c.Key(t, accountID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return entries(zs)
}

func (c *Cache) Count(ctx context.Context, t Type, accountID int64) (int64, error) {
	return c.rdb.ZCard(ctx, c.Key(t, accountID)).Result()
}

// RemovePosts 管道删除：member 等于帖子 ID 的条目，以及分数等于帖子 ID 的转发条目
func (c *Cache) RemovePosts(ctx context.Context, t Type, accountID int64, postIDs []int64) error {
	if len(postIDs) == 0 {
		return nil
	}
	key := c.Key(t, accountID)
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range postIDs {
			s := strconv.FormatInt(id, 10)
			pipe.ZRem(ctx, key, s)
			pipe.ZRemRangeByScore(ctx, key, s, s)
		}
		return nil
	})
	return err
}

// Remove ZREM 指定 member
func (c *Cache) Remove(ctx context.Context, t Type, accountID int64, members []int64) error {
	if len(members) == 0 {
		return nil
	}
	ms := make([]any, len(members))
	for i, m := range members {
		ms[i] = strconv.FormatInt(m, 10)
	}
	return c.rdb.ZRem(ctx, c.Key(t, accountID), ms...).Err()
}

// Delete 删除整条时间线
func (c *Cache) Delete(ctx context.Context, t Type, accountIDs ...int64) error {
	if len(accountIDs) == 0 {
		return nil
	}
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range accountIDs {
			pipe.Del(ctx, c.Key(t, id))
		}
		return nil
	})
	return err
}

// ReplaceAndClearRegeneration 在同一个 MULTI/EXEC 中批量写入并清除重建标记
func (c *Cache) ReplaceAndClearRegeneration(ctx context.Context, t Type, accountID int64, es []Entry) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(es) > 0 {
			members := make([]redis.Z, len(es))
			for i, e := range es {
				members[i] = z(e)
			}
			pipe.ZAdd(ctx, c.Key(t, accountID), members...)
		}
		pipe.Del(ctx, regenerationKey(accountID))
		return nil
	})
	return err
}

func (c *Cache) Regenerating(ctx context.Context, accountID int64) (bool, error) {
	n, err := c.rdb.Exists(ctx, regenerationKey(accountID)).Result()
	return n > 0, err
}

// MarkRegenerating SETNX 设置重建标记；已存在时返回 false
func (c *Cache) MarkRegenerating(ctx context.Context, accountID int64, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, regenerationKey(accountID), "1", ttl).Result()
}

func (c *Cache) ClearRegeneration(ctx context.Context, accountID int64) error {
	return c.rdb.Del(ctx, regenerationKey(accountID)).Err()
}

// Subscribed MGET 批量筛出带订阅标记的账号，保持输入顺序
func (c *Cache) Subscribed(ctx context.Context, accountIDs []int64) ([]int64, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	keys := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		keys[i] = subscribedKey(id)
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(accountIDs))
	for i, v := range vals {
		if v != nil {
			out = append(out, accountIDs[i])
		}
	}
	return out, nil
}

func (c *Cache) Subscribe(ctx context.Context, accountID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, subscribedKey(accountID), "1", ttl).Err()
}

func z(e Entry) redis.Z {
	return redis.Z{Score: float64(e.Score), Member: strconv.FormatInt(e.Member, 10)}
}

func entries(zs []redis.Z) ([]Entry, error) {
	out := make([]Entry, 0, len(zs))
	for _, v := range zs {
		m, ok := v.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected member type %T", v.Member)
		}
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse member %q: %w", m, err)
		}
		out = append(out, Entry{Score: int64(v.Score), Member: id})
	}
	return out, nil
}
