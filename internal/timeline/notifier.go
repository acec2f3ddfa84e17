package timeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	EventUpdate  = "update"
	EventMention = "mention"
)

// Event 推送给流式连接的事件
type Event struct {
	Event    string `json:"event"`
	Payload  string `json:"payload"`
	QueuedAt int64  `json:"queued_at"`
}

// Delivery 发送给某账号的一条事件
type Delivery struct {
	AccountID int64
	Event     Event
}

// Notifier 实时更新通道，尽力而为
type Notifier interface {
	Notify(ctx context.Context, deliveries []Delivery) error
}

// RedisNotifier 通过 PUBLISH timeline:{accountId} 推送
type RedisNotifier struct {
	rdb redis.UniversalClient
}

func NewRedisNotifier(rdb redis.UniversalClient) *RedisNotifier { return &RedisNotifier{rdb: rdb} }

func Channel(accountID int64) string { return fmt.Sprintf("timeline:%d", accountID) }

func (n *RedisNotifier) Notify(ctx context.Context, deliveries []Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	_, err := n.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, d := range deliveries {
			payload, err := json.Marshal(d.Event)
			if err != nil {
				return err
			}
			pipe.Publish(ctx, Channel(d.AccountID), payload)
		}
		return nil
	})
	return err
}

// NopNotifier 不推送
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, []Delivery) error { return nil }

func newEvent(kind string, postID int64, now time.Time) Event {
	return Event{Event: kind, Payload: strconv.FormatInt(postID, 10), QueuedAt: now.UnixMilli()}
}
