package service

import (
	"context"
	"errors"

	"github.com/d60-Lab/home-timeline/internal/timeline"
	"github.com/d60-Lab/home-timeline/internal/worker"
)

var errUnbound = errors.New("timeline engine not bound")

// TimelineJobs 关系变更后需要异步执行的时间线修复
type TimelineJobs interface {
	EnqueueMerge(ctx context.Context, fromID, intoID int64) error
	EnqueueUnmerge(ctx context.Context, fromID, intoID int64) error
	EnqueuePurge(ctx context.Context, accountID, targetID int64) error
}

// Jobs 把时间线操作投递到本地 Dispatcher
type Jobs struct {
	d      *worker.Dispatcher
	engine *timeline.Engine
}

func NewJobs(d *worker.Dispatcher) *Jobs { return &Jobs{d: d} }

// Bind 注入时间线引擎；引擎本身依赖 Jobs 作为重建队列，所以分两步组装
func (j *Jobs) Bind(e *timeline.Engine) { j.engine = e }

func (j *Jobs) EnqueueRebuild(_ context.Context, accountID int64) error {
	return j.enqueue("rebuild", func(ctx context.Context, e *timeline.Engine) error {
		return e.Rebuilder.Rebuild(ctx, accountID)
	})
}

func (j *Jobs) EnqueueMerge(_ context.Context, fromID, intoID int64) error {
	return j.enqueue("merge", func(ctx context.Context, e *timeline.Engine) error {
		_, err := e.Relations.Merge(ctx, fromID, intoID)
		return err
	})
}

func (j *Jobs) EnqueueUnmerge(_ context.Context, fromID, intoID int64) error {
	return j.enqueue("unmerge", func(ctx context.Context, e *timeline.Engine) error {
		_, err := e.Relations.Unmerge(ctx, fromID, intoID)
		return err
	})
}

func (j *Jobs) EnqueuePurge(_ context.Context, accountID, targetID int64) error {
	return j.enqueue("purge", func(ctx context.Context, e *timeline.Engine) error {
		_, err := e.Relations.Purge(ctx, accountID, targetID)
		return err
	})
}

func (j *Jobs) enqueue(kind string, fn func(context.Context, *timeline.Engine) error) error {
	_, err := j.d.Enqueue(kind, func(ctx context.Context) error {
		if j.engine == nil {
			return errUnbound
		}
		return fn(ctx, j.engine)
	})
	return err
}
