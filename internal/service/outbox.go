package service

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/d60-Lab/home-timeline/config"
	"github.com/d60-Lab/home-timeline/internal/model"
	"github.com/d60-Lab/home-timeline/internal/repository"
	"github.com/d60-Lab/home-timeline/internal/timeline"
	"github.com/d60-Lab/home-timeline/pkg/logger"
)

// OutboxWorker 从 outbox 拉取新帖事件，扇出到作者粉丝（及作者本人）的首页时间线
type OutboxWorker struct {
	db           *gorm.DB
	posts        repository.PostRepository
	fanRepo      repository.FanRepository
	fanout       *timeline.Fanout
	batchSize    int
	claimLimit   int
	maxAttempts  int
	pollInterval time.Duration
	workers      int
	claimLease   time.Duration
}

func NewOutboxWorker(db *gorm.DB, posts repository.PostRepository, fanRepo repository.FanRepository, fanout *timeline.Fanout, cfg config.WorkerConfig) *OutboxWorker {
	w := &OutboxWorker{
		db:           db,
		posts:        posts,
		fanRepo:      fanRepo,
		fanout:       fanout,
		batchSize:    cfg.BatchSize,
		claimLimit:   cfg.ClaimLimit,
		maxAttempts:  cfg.MaxAttempts,
		pollInterval: cfg.PollInterval,
		workers:      cfg.Workers,
		claimLease:   cfg.ClaimLease,
	}
	if w.workers <= 0 {
		w.workers = 4
	}
	if w.batchSize <= 0 {
		w.batchSize = 500
	}
	if w.claimLimit <= 0 {
		w.claimLimit = 128
	}
	if w.maxAttempts <= 0 {
		w.maxAttempts = 1
	}
	if w.pollInterval <= 0 {
		w.pollInterval = 50 * time.Millisecond
	}
	if w.claimLease <= 0 {
		w.claimLease = 5 * time.Minute
	}
	return w
}

// Start 启动轮询；返回停止函数
func (w *OutboxWorker) Start() func(context.Context) error {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if _, err := w.ProcessOnce(context.Background()); err != nil {
					logger.Warn("outbox poll failed", zap.Error(err))
				}
			}
		}
	}()
	return func(ctx context.Context) error {
		close(stop)
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ProcessOnce 认领一批 pending 事件并并发扇出，返回处理条数
func (w *OutboxWorker) ProcessOnce(ctx context.Context) (int, error) {
	batch, err := w.claim(ctx)
	if err != nil || len(batch) == 0 {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)
	for _, ob := range batch {
		ob := ob
		g.Go(func() error {
			w.handle(gctx, ob)
			return nil
		})
	}
	return len(batch), g.Wait()
}

// claim 用条件更新认领，兼容不支持 SKIP LOCKED 的数据库。
// processing 超过租约仍未结束的行视为处理者已退出，重新认领。
func (w *OutboxWorker) claim(ctx context.Context) ([]*model.Outbox, error) {
	now := time.Now()
	var candidates []*model.Outbox
	if err := w.db.WithContext(ctx).
		Where("status = ? OR (status = ? AND claimed_at < ?)", model.OutboxPending, model.OutboxProcessing, now.Add(-w.claimLease)).
		Order("created_at").
		Limit(w.claimLimit).
		Find(&candidates).Error; err != nil {
		return nil, err
	}

	claimed := make([]*model.Outbox, 0, len(candidates))
	for _, ob := range candidates {
		token := uuid.New().String()
		res := w.db.WithContext(ctx).Model(&model.Outbox{}).
			Where("id = ? AND status = ? AND claim_token = ?", ob.ID, ob.Status, ob.ClaimToken).
			Updates(map[string]any{"status": model.OutboxProcessing, "claim_token": token, "claimed_at": now})
		if res.Error != nil {
			return claimed, res.Error
		}
		if res.RowsAffected != 1 {
			continue
		}
		if ob.Status == model.OutboxProcessing {
			logger.Warn("outbox lease expired, reclaiming", zap.Int64("post_id", ob.PostID))
		}
		ob.Status, ob.ClaimToken, ob.ClaimedAt = model.OutboxProcessing, token, &now
		claimed = append(claimed, ob)
	}
	return claimed, nil
}

func (w *OutboxWorker) handle(ctx context.Context, ob *model.Outbox) {
	count, err := w.deliver(ctx, ob)
	now := time.Now()
	if err == nil {
		w.settle(ctx, ob, map[string]any{"status": model.OutboxDone, "processed_at": now, "fanout_count": count})
		return
	}

	attempts := ob.Attempts + 1
	status := model.OutboxPending
	if attempts >= w.maxAttempts {
		status = model.OutboxFailed
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("job_kind", "outbox")
			scope.SetExtra("post_id", ob.PostID)
			sentry.CaptureException(err)
		})
	}
	logger.Warn("outbox fanout failed",
		zap.Int64("post_id", ob.PostID),
		zap.Int("attempts", attempts),
		zap.String("status", status),
		zap.Error(err),
	)
	w.settle(ctx, ob, map[string]any{"status": status, "attempts": attempts, "last_error": err.Error()})
}

// settle 写回处理结果；租约已被他人接手时不覆盖。写失败的行在租约到期后重新认领
func (w *OutboxWorker) settle(ctx context.Context, ob *model.Outbox, values map[string]any) {
	res := w.db.WithContext(ctx).Model(&model.Outbox{}).
		Where("id = ? AND claim_token = ?", ob.ID, ob.ClaimToken).
		Updates(values)
	if res.Error != nil {
		logger.Error("outbox status update failed",
			zap.Int64("post_id", ob.PostID),
			zap.Any("status", values["status"]),
			zap.Error(res.Error),
		)
		return
	}
	if res.RowsAffected == 0 {
		logger.Warn("outbox claim lost before settle", zap.Int64("post_id", ob.PostID))
	}
}

// deliver 按页读取粉丝并扇出；私信只推送提及
func (w *OutboxWorker) deliver(ctx context.Context, ob *model.Outbox) (int64, error) {
	post, err := w.posts.Get(ctx, ob.PostID)
	if errors.Is(err, repository.ErrPostNotFound) {
		// 帖子已删除，无需扇出
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var total int64
	if !post.IsDirect() {
		subscribers := []int64{post.AccountID}
		var after int64
		for {
			fans, err := w.fanRepo.FanIDsAfter(ctx, post.AccountID, after, w.batchSize)
			if err != nil {
				return total, err
			}
			subscribers = append(subscribers, fans...)
			if len(subscribers) > 0 {
				n, err := w.fanout.Publish(ctx, timeline.Home, subscribers, post)
				if err != nil {
					return total, err
				}
				total += int64(n)
			}
			if len(fans) < w.batchSize {
				break
			}
			after = fans[len(fans)-1]
			subscribers = subscribers[:0]
		}
	}

	if _, err := w.fanout.NotifyMentions(ctx, post); err != nil {
		return total, err
	}
	return total, nil
}
