package timeline

import "github.com/redis/go-redis/v9"

// Deps 时间线引擎的外部依赖
type Deps struct {
	Redis     redis.UniversalClient
	Posts     PostStore
	Users     UserStore
	Relations Relations
	Notifier  Notifier
	// Queue 为空时 Tracker 只置标记不入队
	Queue RebuildQueue
}

// Engine 组装好的时间线组件集合
type Engine struct {
	Cache     *Cache
	Filter    *Filter
	Fanout    *Fanout
	Reader    *Reader
	Rebuilder *Rebuilder
	Relations *RelationHandler
	Tracker   *Tracker
	Cleaner   *Cleaner
}

func NewEngine(d Deps, opts Options) *Engine {
	cache := NewCache(d.Redis, opts.MaxItems)
	filter := NewFilter(d.Relations)
	tracker := NewTracker(cache, d.Users, d.Posts, d.Queue, opts)
	return &Engine{
		Cache:     cache,
		Filter:    filter,
		Fanout:    NewFanout(cache, filter, d.Notifier, opts),
		Reader:    NewReader(cache, d.Posts, filter, opts),
		Rebuilder: NewRebuilder(cache, d.Posts, filter, tracker, opts),
		Relations: NewRelationHandler(cache, d.Posts, filter, opts),
		Tracker:   tracker,
		Cleaner:   NewCleaner(cache, d.Users, opts),
	}
}
