package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/d60-Lab/home-timeline/config"
	"github.com/d60-Lab/home-timeline/internal/repository"
	"github.com/d60-Lab/home-timeline/internal/service"
	"github.com/d60-Lab/home-timeline/internal/timeline"
	"github.com/d60-Lab/home-timeline/internal/worker"
	"github.com/d60-Lab/home-timeline/pkg/cache"
	"github.com/d60-Lab/home-timeline/pkg/database"
)

// App 进程内共享的组件；server 与 timelinectl 共用同一套组装
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client

	Accounts repository.AccountRepository
	Users    repository.UserRepository
	Posts    repository.PostRepository
	Follows  repository.FollowRepository
	Fans     repository.FanRepository
	Rels     repository.RelationRepository

	Dispatcher *worker.Dispatcher
	Jobs       *service.Jobs
	Engine     *timeline.Engine

	Timeline      *service.TimelineService
	Relationships service.RelationshipService
	Publisher     *service.Publisher
	Outbox        *service.OutboxWorker

	owned bool
}

// New 连接存储并组装时间线引擎。Dispatcher 未启动，由调用方决定
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	rdb, err := cache.NewRedis(ctx, cfg)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	a := Assemble(cfg, db, rdb)
	a.owned = true
	return a, nil
}

// Assemble 在已有连接上组装组件；连接的生命周期仍归调用方
func Assemble(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	a := &App{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		Accounts: repository.NewAccountRepository(db),
		Users:    repository.NewUserRepository(db),
		Posts:    repository.NewPostRepository(db),
		Follows:  repository.NewFollowRepository(db),
		Fans:     repository.NewFanRepository(db),
		Rels:     repository.NewRelationRepository(db),
	}

	a.Dispatcher = worker.NewDispatcher(cfg.Worker)
	a.Jobs = service.NewJobs(a.Dispatcher)
	a.Engine = timeline.NewEngine(timeline.Deps{
		Redis:     rdb,
		Posts:     a.Posts,
		Users:     a.Users,
		Relations: a.Rels,
		Notifier:  timeline.NewRedisNotifier(rdb),
		Queue:     a.Jobs,
	}, timeline.OptionsFromConfig(cfg))
	a.Jobs.Bind(a.Engine)

	replicator := service.NewFanReplicator(a.Follows, a.Fans, a.Dispatcher)
	a.Timeline = service.NewTimelineService(a.Engine, a.Accounts, a.Users)
	a.Relationships = service.NewRelationshipService(a.Follows, a.Fans, a.Rels, replicator, a.Jobs)
	a.Publisher = service.NewPublisher(a.DB)
	a.Outbox = service.NewOutboxWorker(a.DB, a.Posts, a.Fans, a.Engine.Fanout, cfg.Worker)
	return a
}

// Close 关闭由 New 打开的连接
func (a *App) Close() error {
	if !a.owned {
		return nil
	}
	var firstErr error
	if err := a.Redis.Close(); err != nil {
		firstErr = fmt.Errorf("close redis: %w", err)
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close database: %w", err)
		}
	}
	return firstErr
}
