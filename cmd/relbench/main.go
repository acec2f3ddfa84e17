package main

import (
	"context"
	"fmt"
	"time"

	"github.com/d60-Lab/home-timeline/config"
	"github.com/d60-Lab/home-timeline/internal/app"
	"github.com/d60-Lab/home-timeline/internal/bench"
	"github.com/d60-Lab/home-timeline/internal/model"
	"github.com/d60-Lab/home-timeline/internal/service"
	"github.com/d60-Lab/home-timeline/internal/timeline"
)

// 关注写入延迟，以及 fans 冗余复制与 merge 任务的排空耗时
func main() {
	ctx := context.Background()
	cfg := bench.Must(config.Load())
	a := bench.Must(app.New(ctx, cfg))
	defer func() { _ = a.Close() }()

	n := bench.EnvInt("N", 10000)
	conc := bench.EnvInt("CONC", 1)
	page := bench.EnvInt("PAGE", 50)
	seedPosts := bench.EnvInt("POSTS", 100)

	_ = a.DB.Exec("TRUNCATE TABLE outbox, mentions, posts, fans, follows, blocks, mutes, users, accounts RESTART IDENTITY CASCADE").Error
	_ = a.Redis.FlushDB(ctx).Err()

	celeb := &model.Account{Username: "celeb"}
	if err := a.Accounts.Create(ctx, celeb); err != nil {
		panic(err)
	}
	for i := 0; i < seedPosts; i++ {
		if _, err := a.Publisher.Publish(ctx, service.PublishInput{AuthorID: celeb.ID, Text: fmt.Sprintf("p%d", i)}); err != nil {
			panic(err)
		}
	}
	users := make([]model.Account, n)
	for i := range users {
		users[i] = model.Account{Username: fmt.Sprintf("u%06d", i)}
	}
	if err := a.DB.CreateInBatches(&users, 1000).Error; err != nil {
		panic(err)
	}

	stop := a.Dispatcher.Start(cfg.Worker.Workers)

	maxQ := 0
	quitSample := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				maxQ = max(maxQ, a.Dispatcher.QueueLen())
			case <-quitSample:
				return
			}
		}
	}()

	feed := make(chan int, n)
	for i := range users {
		feed <- i
	}
	close(feed)

	lat := make(chan time.Duration, n)
	done := make(chan struct{}, conc)
	t0 := time.Now()
	for w := 0; w < min(conc, n); w++ {
		go func() {
			for i := range feed {
				st := time.Now()
				_ = a.Relationships.Follow(ctx, users[i].ID, celeb.ID)
				lat <- time.Since(st)
			}
			done <- struct{}{}
		}()
	}
	for w := 0; w < min(conc, n); w++ {
		<-done
	}
	followDur := time.Since(t0)
	close(lat)
	close(quitSample)
	follows := make([]time.Duration, 0, n)
	for d := range lat {
		follows = append(follows, d)
	}

	drainStart := time.Now()
	_ = stop(ctx)
	drainDur := time.Since(drainStart)

	q0 := time.Now()
	_, _ = a.Relationships.ListFans(ctx, celeb.ID, 1, page)
	fansDur := time.Since(q0)

	entries, _ := a.Engine.Cache.Count(ctx, timeline.Home, users[0].ID)

	fmt.Printf("N=%d CONC=%d PAGE=%d POSTS=%d\n", n, conc, page, seedPosts)
	fmt.Printf("Follow latency total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		followDur, followDur/time.Duration(max(n, 1)), bench.Pct(follows, 0.50), bench.Pct(follows, 0.95), bench.Pct(follows, 0.99))
	fmt.Printf("Job drain (fans + merge): %v, maxQueue=%d\n", drainDur, maxQ)
	fmt.Printf("Query fans(%d) latency: %v\n", page, fansDur)
	fmt.Printf("Merged entries in first follower timeline: %d\n", entries)
}
