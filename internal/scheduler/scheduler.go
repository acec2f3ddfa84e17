package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/d60-Lab/home-timeline/pkg/logger"
)

// Job 周期任务
type Job func(ctx context.Context) error

// Scheduler 基于 cron 的周期任务调度；同名任务不会并发执行
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

func New(timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		timeout: timeout,
		jobs:    make(map[string]cron.EntryID),
	}
}

// AddJob 注册任务，schedule 支持标准 cron 表达式与 "@every 1h" 形式
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	var running sync.Mutex
	id, err := s.cron.AddFunc(schedule, func() {
		if !running.TryLock() {
			logger.Warn("scheduled job still running, skipped", zap.String("job", name))
			return
		}
		defer running.Unlock()
		s.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}

	s.mu.Lock()
	s.jobs[name] = id
	s.mu.Unlock()
	logger.Info("scheduled job added", zap.String("job", name), zap.String("schedule", schedule))
	return nil
}

// RunNow 立即同步执行一次
func (s *Scheduler) RunNow(name string, job Job) error {
	return s.run(name, job)
}

func (s *Scheduler) run(name string, job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := job(ctx)
	if err != nil {
		logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
		return err
	}
	logger.Info("scheduled job completed", zap.String("job", name), zap.Duration("took", time.Since(start)))
	return nil
}

// Next 返回任务下一次执行时间
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
