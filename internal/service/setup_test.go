package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/home-timeline/config"
	"github.com/d60-Lab/home-timeline/internal/model"
	"github.com/d60-Lab/home-timeline/internal/repository"
	"github.com/d60-Lab/home-timeline/internal/timeline"
	"github.com/d60-Lab/home-timeline/internal/worker"
)

type env struct {
	ctx      context.Context
	db       *gorm.DB
	mr       *miniredis.Miniredis
	accounts repository.AccountRepository
	users    repository.UserRepository
	posts    repository.PostRepository
	follows  repository.FollowRepository
	fans     repository.FanRepository
	rels     repository.RelationRepository
	engine   *timeline.Engine
}

func setupEnv(t *testing.T) *env {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(model.All()...))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := &env{
		ctx:      context.Background(),
		db:       db,
		mr:       mr,
		accounts: repository.NewAccountRepository(db),
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db),
		follows:  repository.NewFollowRepository(db),
		fans:     repository.NewFanRepository(db),
		rels:     repository.NewRelationRepository(db),
	}
	e.engine = timeline.NewEngine(timeline.Deps{
		Redis:     rdb,
		Posts:     e.posts,
		Users:     e.users,
		Relations: e.rels,
		Notifier:  timeline.NewRedisNotifier(rdb),
	}, timeline.DefaultOptions())
	return e
}

func (e *env) account(t *testing.T, id int64) {
	t.Helper()
	require.NoError(t, e.accounts.Create(e.ctx, &model.Account{ID: id, Username: fmt.Sprintf("acct%d", id)}))
}

func (e *env) subscribe(t *testing.T, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, e.engine.Cache.Subscribe(e.ctx, id, time.Hour))
	}
}

func (e *env) entries(t *testing.T, id int64) []timeline.Entry {
	t.Helper()
	es, err := e.engine.Cache.Entries(e.ctx, timeline.Home, id)
	require.NoError(t, err)
	return es
}

func workerConfig() config.WorkerConfig {
	return config.WorkerConfig{
		Workers:      2,
		QueueSize:    64,
		MaxAttempts:  2,
		JobTimeout:   time.Second,
		PollInterval: 10 * time.Millisecond,
		ClaimLimit:   16,
		BatchSize:    2,
		ClaimLease:   time.Minute,
	}
}

func newDispatcher(t *testing.T) *worker.Dispatcher {
	t.Helper()
	d := worker.NewDispatcher(workerConfig())
	stop := d.Start(1)
	t.Cleanup(func() { _ = stop(context.Background()) })
	return d
}

type call struct {
	kind     string
	from, to int64
}

type fakeJobs struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeJobs) record(kind string, from, to int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{kind: kind, from: from, to: to})
	return nil
}

func (f *fakeJobs) EnqueueMerge(_ context.Context, from, into int64) error {
	return f.record("merge", from, into)
}

func (f *fakeJobs) EnqueueUnmerge(_ context.Context, from, into int64) error {
	return f.record("unmerge", from, into)
}

func (f *fakeJobs) EnqueuePurge(_ context.Context, account, target int64) error {
	return f.record("purge", account, target)
}
