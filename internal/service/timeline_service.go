package service

import (
	"context"
	"fmt"
	"time"

	"github.com/d60-Lab/home-timeline/internal/model"
	"github.com/d60-Lab/home-timeline/internal/repository"
	"github.com/d60-Lab/home-timeline/internal/timeline"
)

// TimelineService 首页时间线读取与账号生命周期
type TimelineService struct {
	engine   *timeline.Engine
	accounts repository.AccountRepository
	users    repository.UserRepository
}

func NewTimelineService(engine *timeline.Engine, accounts repository.AccountRepository, users repository.UserRepository) *TimelineService {
	return &TimelineService{engine: engine, accounts: accounts, users: users}
}

// Home 校验分页区间后读取首页时间线
func (s *TimelineService) Home(ctx context.Context, accountID int64, limit int, maxID, sinceID *int64) ([]*model.Post, error) {
	upper, lower, err := s.engine.Reader.Window(ctx, maxID, sinceID)
	if err != nil {
		return nil, err
	}
	return s.engine.Reader.Get(ctx, timeline.Home, accountID, limit, upper, lower)
}

// Touch 记录一次活跃访问，返回是否触发了时间线重建
func (s *TimelineService) Touch(ctx context.Context, accountID int64) (bool, error) {
	return s.engine.Tracker.Touch(ctx, accountID)
}

// Register 创建本地账号与登录用户，并初始化其时间线
func (s *TimelineService) Register(ctx context.Context, username string) (*model.Account, error) {
	a := &model.Account{Username: username}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	now := time.Now()
	if err := s.users.Create(ctx, &model.User{AccountID: a.ID, ConfirmedAt: &now}); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := s.engine.Tracker.Bootstrap(ctx, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}
