package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/d60-Lab/home-timeline/config"
	"github.com/d60-Lab/home-timeline/pkg/logger"
)

var (
	ErrQueueFull = errors.New("job queue full")
	ErrStopped   = errors.New("dispatcher stopped")
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_jobs_total",
		Help: "Jobs finished per kind and result",
	}, []string{"kind", "result"})

	jobLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timeline_job_latency_seconds",
		Help:    "Time from enqueue to completion",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)

// Func 任务体；必须可重复执行
type Func func(ctx context.Context) error

type job struct {
	id       string
	kind     string
	fn       Func
	attempts int
	enqAt    time.Time
}

// Dispatcher 本地异步任务执行器：至少一次执行，失败按次数上限重试
type Dispatcher struct {
	ch          chan *job
	maxAttempts int
	timeout     time.Duration
	backoff     func(attempt int) time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher(cfg config.WorkerConfig) *Dispatcher {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 10000
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		ch:          make(chan *job, queueSize),
		maxAttempts: maxAttempts,
		timeout:     timeout,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * 100 * time.Millisecond
		},
	}
}

// Enqueue 投递任务，队列满时丢弃并返回 ErrQueueFull
func (d *Dispatcher) Enqueue(kind string, fn Func) (string, error) {
	j := &job{id: uuid.New().String(), kind: kind, fn: fn, enqAt: time.Now()}
	if err := d.push(j); err != nil {
		return "", err
	}
	return j.id, nil
}

func (d *Dispatcher) push(j *job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}
	select {
	case d.ch <- j:
		return nil
	default:
		logger.Warn("job queue full, drop", zap.String("kind", j.kind), zap.String("job_id", j.id))
		jobsTotal.WithLabelValues(j.kind, "dropped").Inc()
		return ErrQueueFull
	}
}

// Start 启动 workers 个消费者；返回的停止函数等待队列排空或 ctx 超时
func (d *Dispatcher) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for j := range d.ch {
				d.run(j)
			}
		}()
	}
	return func(ctx context.Context) error {
		d.mu.Lock()
		if !d.stopped {
			d.stopped = true
			close(d.ch)
		}
		d.mu.Unlock()

		done := make(chan struct{})
		go func() { d.wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("dispatcher drain: %w", ctx.Err())
		}
	}
}

// QueueLen 当前队列长度（采样值）
func (d *Dispatcher) QueueLen() int { return len(d.ch) }

func (d *Dispatcher) run(j *job) {
	j.attempts++
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	err := safeCall(ctx, j.fn)
	cancel()

	if err == nil {
		jobsTotal.WithLabelValues(j.kind, "ok").Inc()
		jobLatency.WithLabelValues(j.kind).Observe(time.Since(j.enqAt).Seconds())
		return
	}

	fields := []zap.Field{
		zap.String("kind", j.kind),
		zap.String("job_id", j.id),
		zap.Int("attempt", j.attempts),
		zap.Error(err),
	}
	if j.attempts >= d.maxAttempts {
		jobsTotal.WithLabelValues(j.kind, "failed").Inc()
		logger.Error("job failed, giving up", fields...)
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("job_kind", j.kind)
			scope.SetExtra("job_id", j.id)
			scope.SetExtra("attempts", j.attempts)
			sentry.CaptureException(err)
		})
		return
	}

	jobsTotal.WithLabelValues(j.kind, "retry").Inc()
	logger.Warn("job failed, retrying", fields...)
	time.AfterFunc(d.backoff(j.attempts), func() {
		if err := d.push(j); err != nil {
			logger.Warn("job retry dropped", append(fields, zap.NamedError("enqueue_error", err))...)
		}
	})
}

func safeCall(ctx context.Context, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
		}
	}()
	return fn(ctx)
}
