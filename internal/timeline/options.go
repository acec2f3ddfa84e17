package timeline

import (
	"errors"
	"time"

	"github.com/d60-Lab/home-timeline/config"
)

// ErrRangeTooBroad max_id 与 since_id 跨度超过允许范围
var ErrRangeTooBroad = errors.New("too broad range for id")

// ErrInvalidMaxID max_id 必须为正数；0 在读路径上表示不设上界
var ErrInvalidMaxID = errors.New("max_id must be positive")

// Type 时间线类型
type Type string

const Home Type = "home"

// Options 时间线缓存策略参数
type Options struct {
	MaxItems            int
	ReblogRankThreshold int64
	MergeWindow         int
	MinItems            int
	MinIDRange          int64
	RangeSpan           int64
	DefaultLimit        int
	MaxLimit            int

	SubscribedTTL          time.Duration
	RegenerationTTL        time.Duration
	UpdateSignInDuration   time.Duration
	FeedUpdatedDuration    time.Duration
	FeedPersistentDuration time.Duration

	// BatchSize 取消合并/清理时每批读取的帖子或账号数
	BatchSize int
}

func DefaultOptions() Options {
	return Options{
		MaxItems:               400,
		ReblogRankThreshold:    40,
		MergeWindow:            100,
		MinItems:               100,
		MinIDRange:             262144,
		RangeSpan:              262144,
		DefaultLimit:           20,
		MaxLimit:               40,
		SubscribedTTL:          24 * time.Hour,
		RegenerationTTL:        24 * time.Hour,
		UpdateSignInDuration:   24 * time.Hour,
		FeedUpdatedDuration:    48 * time.Hour,
		FeedPersistentDuration: 14 * 24 * time.Hour,
		BatchSize:              1000,
	}
}

// OptionsFromConfig 由配置构造 Options
func OptionsFromConfig(cfg *config.Config) Options {
	t := cfg.Timeline
	return Options{
		MaxItems:               t.MaxItems,
		ReblogRankThreshold:    t.ReblogRankThreshold,
		MergeWindow:            t.MergeWindow,
		MinItems:               t.MinItems,
		MinIDRange:             t.MinIDRange,
		RangeSpan:              t.RangeSpan,
		DefaultLimit:           t.DefaultLimit,
		MaxLimit:               t.MaxLimit,
		SubscribedTTL:          t.SubscribedTTL,
		RegenerationTTL:        t.RegenerationTTL,
		UpdateSignInDuration:   t.UpdateSignInDuration,
		FeedUpdatedDuration:    t.FeedUpdatedDuration,
		FeedPersistentDuration: t.FeedPersistentDuration,
		BatchSize:              cfg.Worker.BatchSize,
	}
}
