package timeline

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/home-timeline/internal/model"
	"github.com/d60-Lab/home-timeline/internal/repository"
)

type fixture struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	posts    repository.PostRepository
	users    repository.UserRepository
	follows  repository.FollowRepository
	rels     repository.RelationRepository
	notifier *recordingNotifier
	queue    *recordingQueue
	opts     Options
	engine   *Engine
}

func newFixture(t *testing.T, tweak ...func(*Options)) *fixture {
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

	opts := DefaultOptions()
	for _, fn := range tweak {
		fn(&opts)
	}

	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		db:       db,
		mr:       mr,
		rdb:      rdb,
		posts:    repository.NewPostRepository(db),
		users:    repository.NewUserRepository(db),
		follows:  repository.NewFollowRepository(db),
		rels:     repository.NewRelationRepository(db),
		notifier: &recordingNotifier{},
		queue:    &recordingQueue{},
		opts:     opts,
	}
	f.engine = NewEngine(Deps{
		Redis:     rdb,
		Posts:     f.posts,
		Users:     f.users,
		Relations: f.rels,
		Notifier:  f.notifier,
		Queue:     f.queue,
	}, opts)
	return f
}

func (f *fixture) account(id int64, fns ...func(*model.Account)) *model.Account {
	f.t.Helper()
	a := &model.Account{ID: id, Username: "user" + itoa(id)}
	for _, fn := range fns {
		fn(a)
	}
	require.NoError(f.t, f.db.Create(a).Error)
	return a
}

func (f *fixture) accounts(ids ...int64) {
	for _, id := range ids {
		f.account(id)
	}
}

// post 写入后重新读取，带上预加载的关联
func (f *fixture) post(p *model.Post) *model.Post {
	f.t.Helper()
	if p.Visibility == "" {
		p.Visibility = model.VisibilityPublic
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	require.NoError(f.t, f.db.Create(p).Error)
	got, err := f.posts.Get(f.ctx, p.ID)
	require.NoError(f.t, err)
	return got
}

func (f *fixture) simplePost(id, author int64) *model.Post {
	return f.post(&model.Post{ID: id, AccountID: author})
}

func (f *fixture) reblog(id, author, original int64) *model.Post {
	return f.post(&model.Post{ID: id, AccountID: author, ReblogOfID: ptr(original)})
}

func (f *fixture) mention(postID, accountID int64) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(&model.Mention{ID: "m" + itoa(postID) + "-" + itoa(accountID), PostID: postID, AccountID: accountID}).Error)
}

func (f *fixture) follow(follower, followee int64) {
	f.t.Helper()
	require.NoError(f.t, f.follows.Create(f.ctx, follower, followee))
}

func (f *fixture) block(account, target int64) {
	f.t.Helper()
	require.NoError(f.t, f.rels.Block(f.ctx, account, target))
}

func (f *fixture) mute(account, target int64) {
	f.t.Helper()
	require.NoError(f.t, f.rels.Mute(f.ctx, account, target))
}

func (f *fixture) subscribe(ids ...int64) {
	f.t.Helper()
	for _, id := range ids {
		require.NoError(f.t, f.engine.Cache.Subscribe(f.ctx, id, time.Hour))
	}
}

func (f *fixture) seed(account int64, es ...Entry) {
	f.t.Helper()
	ins := make([]Insert, len(es))
	for i, e := range es {
		ins[i] = Insert{AccountID: account, Entry: e}
	}
	require.NoError(f.t, f.engine.Cache.Add(f.ctx, Home, ins))
}

func (f *fixture) entries(account int64) []Entry {
	f.t.Helper()
	es, err := f.engine.Cache.Entries(f.ctx, Home, account)
	require.NoError(f.t, err)
	return es
}

func (f *fixture) user(accountID int64, current, last *time.Time) {
	f.t.Helper()
	confirmed := time.Now().Add(-365 * 24 * time.Hour)
	require.NoError(f.t, f.users.Create(f.ctx, &model.User{
		AccountID:       accountID,
		CurrentSignInAt: current,
		LastSignInAt:    last,
		ConfirmedAt:     &confirmed,
	}))
}

func postIDs(posts []*model.Post) []int64 {
	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

func ent(score, member int64) Entry { return Entry{Score: score, Member: member} }

func ptr[T any](v T) *T { return &v }

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

type recordingNotifier struct {
	mu         sync.Mutex
	deliveries []Delivery
	err        error
}

func (n *recordingNotifier) Notify(_ context.Context, ds []Delivery) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.deliveries = append(n.deliveries, ds...)
	return nil
}

func (n *recordingNotifier) all() []Delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Delivery(nil), n.deliveries...)
}

type recordingQueue struct {
	mu       sync.Mutex
	rebuilds []int64
}

func (q *recordingQueue) EnqueueRebuild(_ context.Context, accountID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rebuilds = append(q.rebuilds, accountID)
	return nil
}
