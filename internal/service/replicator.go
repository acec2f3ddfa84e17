package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/d60-Lab/home-timeline/internal/repository"
	"github.com/d60-Lab/home-timeline/internal/worker"
	"github.com/d60-Lab/home-timeline/pkg/logger"
)

// FanReplicator 异步维护粉丝冗余表（fans），扇出按它分页读取粉丝
type FanReplicator struct {
	followRepo repository.FollowRepository
	fanRepo    repository.FanRepository
	d          *worker.Dispatcher
}

func NewFanReplicator(followRepo repository.FollowRepository, fanRepo repository.FanRepository, d *worker.Dispatcher) *FanReplicator {
	return &FanReplicator{followRepo: followRepo, fanRepo: fanRepo, d: d}
}

// EnqueueAdd fanID 关注了 accountID。执行时以 follows 当前状态为准，乱序执行也能收敛
func (r *FanReplicator) EnqueueAdd(accountID, fanID int64) {
	r.enqueue("fan_add", accountID, fanID)
}

func (r *FanReplicator) EnqueueRemove(accountID, fanID int64) {
	r.enqueue("fan_remove", accountID, fanID)
}

func (r *FanReplicator) enqueue(kind string, accountID, fanID int64) {
	_, err := r.d.Enqueue(kind, func(ctx context.Context) error {
		return r.Sync(ctx, accountID, fanID)
	})
	if err != nil {
		logger.Warn("replicator enqueue failed", zap.String("kind", kind), zap.Int64("account", accountID), zap.Int64("fan", fanID), zap.Error(err))
	}
}

// Sync 让 fans 中 (accountID, fanID) 的存在性与 follows 一致
func (r *FanReplicator) Sync(ctx context.Context, accountID, fanID int64) error {
	following, err := r.followRepo.Exists(ctx, fanID, accountID)
	if err != nil {
		return err
	}
	if following {
		return r.fanRepo.Create(ctx, accountID, fanID)
	}
	return r.fanRepo.Delete(ctx, accountID, fanID)
}
