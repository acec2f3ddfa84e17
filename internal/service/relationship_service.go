package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/d60-Lab/home-timeline/internal/repository"
	"github.com/d60-Lab/home-timeline/pkg/logger"
)

var (
	ErrFollowSelf = errors.New("cannot follow self")
	ErrBlockSelf  = errors.New("cannot block or mute self")
	ErrBlocked    = errors.New("follow not allowed between blocked accounts")
)

// RelationshipService 关系链服务；写入关系后投递时间线修复任务
type RelationshipService interface {
	Follow(ctx context.Context, fromID, toID int64) error
	Unfollow(ctx context.Context, fromID, toID int64) error
	Block(ctx context.Context, fromID, toID int64) error
	Unblock(ctx context.Context, fromID, toID int64) error
	Mute(ctx context.Context, fromID, toID int64) error
	Unmute(ctx context.Context, fromID, toID int64) error
	ListFollowing(ctx context.Context, accountID int64, page, pageSize int) ([]int64, error)
	ListFans(ctx context.Context, accountID int64, page, pageSize int) ([]int64, error)
}

type relationshipService struct {
	followRepo repository.FollowRepository
	fanRepo    repository.FanRepository
	relRepo    repository.RelationRepository
	replicator *FanReplicator
	jobs       TimelineJobs
}

func NewRelationshipService(followRepo repository.FollowRepository, fanRepo repository.FanRepository, relRepo repository.RelationRepository, replicator *FanReplicator, jobs TimelineJobs) RelationshipService {
	return &relationshipService{followRepo: followRepo, fanRepo: fanRepo, relRepo: relRepo, replicator: replicator, jobs: jobs}
}

func (s *relationshipService) Follow(ctx context.Context, fromID, toID int64) error {
	if fromID == toID {
		return ErrFollowSelf
	}
	blocked, err := s.relRepo.BlockingAny(ctx, []int64{fromID, toID}, []int64{fromID, toID})
	if err != nil {
		return err
	}
	if len(blocked) > 0 {
		return ErrBlocked
	}
	if err := s.followRepo.Create(ctx, fromID, toID); err != nil {
		return err
	}
	if s.replicator != nil {
		s.replicator.EnqueueAdd(toID, fromID)
	}
	s.schedule("merge", s.jobs.EnqueueMerge(ctx, toID, fromID), fromID, toID)
	return nil
}

func (s *relationshipService) Unfollow(ctx context.Context, fromID, toID int64) error {
	if err := s.unfollow(ctx, fromID, toID); err != nil {
		return err
	}
	s.schedule("unmerge", s.jobs.EnqueueUnmerge(ctx, toID, fromID), fromID, toID)
	return nil
}

func (s *relationshipService) unfollow(ctx context.Context, fromID, toID int64) error {
	if err := s.followRepo.Delete(ctx, fromID, toID); err != nil {
		return err
	}
	if s.replicator != nil {
		s.replicator.EnqueueRemove(toID, fromID)
	}
	return nil
}

// Block 双向解除关注，并从双方时间线中清除对方的内容
func (s *relationshipService) Block(ctx context.Context, fromID, toID int64) error {
	if fromID == toID {
		return ErrBlockSelf
	}
	if err := s.relRepo.Block(ctx, fromID, toID); err != nil {
		return err
	}
	if err := s.unfollow(ctx, fromID, toID); err != nil {
		return fmt.Errorf("unfollow blocked: %w", err)
	}
	if err := s.unfollow(ctx, toID, fromID); err != nil {
		return fmt.Errorf("remove blocked follower: %w", err)
	}
	s.schedule("purge", s.jobs.EnqueuePurge(ctx, fromID, toID), fromID, toID)
	s.schedule("purge", s.jobs.EnqueuePurge(ctx, toID, fromID), toID, fromID)
	return nil
}

func (s *relationshipService) Unblock(ctx context.Context, fromID, toID int64) error {
	return s.relRepo.Unblock(ctx, fromID, toID)
}

func (s *relationshipService) Mute(ctx context.Context, fromID, toID int64) error {
	if fromID == toID {
		return ErrBlockSelf
	}
	if err := s.relRepo.Mute(ctx, fromID, toID); err != nil {
		return err
	}
	s.schedule("purge", s.jobs.EnqueuePurge(ctx, fromID, toID), fromID, toID)
	return nil
}

func (s *relationshipService) Unmute(ctx context.Context, fromID, toID int64) error {
	return s.relRepo.Unmute(ctx, fromID, toID)
}

// schedule 任务投递失败只记日志：关系已落库，时间线在下次重建时修正
func (s *relationshipService) schedule(kind string, err error, accountID, targetID int64) {
	if err != nil {
		logger.Warn("timeline job not scheduled",
			zap.String("kind", kind),
			zap.Int64("account", accountID),
			zap.Int64("target", targetID),
			zap.Error(err),
		)
	}
}

func (s *relationshipService) ListFollowing(ctx context.Context, accountID int64, page, pageSize int) ([]int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize
	items, err := s.followRepo.ListFollowings(ctx, accountID, offset, pageSize)
	if err != nil {
		return nil, err
	}
	res := make([]int64, len(items))
	for i, it := range items {
		res[i] = it.FolloweeID
	}
	return res, nil
}

func (s *relationshipService) ListFans(ctx context.Context, accountID int64, page, pageSize int) ([]int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize
	items, err := s.fanRepo.ListFans(ctx, accountID, offset, pageSize)
	if err != nil {
		return nil, err
	}
	res := make([]int64, len(items))
	for i, it := range items {
		res[i] = it.FanID
	}
	return res, nil
}
