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
)

// 发帖 -> outbox 扇出落地 -> 粉丝读首页 的端到端耗时
func main() {
	ctx := context.Background()
	cfg := bench.Must(config.Load())
	a := bench.Must(app.New(ctx, cfg))
	defer func() { _ = a.Close() }()

	n := bench.EnvInt("N", 20000)      // 作者粉丝数
	posts := bench.EnvInt("POSTS", 100) // 发帖数
	reads := bench.EnvInt("READS", 1000)

	// 本地压测，清空相关表
	_ = a.DB.Exec("TRUNCATE TABLE outbox, mentions, posts, fans, follows, users, accounts RESTART IDENTITY CASCADE").Error
	_ = a.Redis.FlushDB(ctx).Err()

	author := &model.Account{Username: "author0"}
	if err := a.Accounts.Create(ctx, author); err != nil {
		panic(err)
	}
	fans := make([]model.Account, n)
	for i := range fans {
		fans[i] = model.Account{Username: fmt.Sprintf("fan%06d", i)}
	}
	if err := a.DB.CreateInBatches(&fans, 1000).Error; err != nil {
		panic(err)
	}
	for _, f := range fans {
		_ = a.Follows.Create(ctx, f.ID, author.ID)
		_ = a.Fans.Create(ctx, author.ID, f.ID)
		_ = a.Engine.Cache.Subscribe(ctx, f.ID, cfg.Timeline.SubscribedTTL)
	}
	_ = a.Engine.Cache.Subscribe(ctx, author.ID, cfg.Timeline.SubscribedTTL)

	stop := a.Outbox.Start()

	pubDurations := make([]time.Duration, 0, posts)
	for i := 0; i < posts; i++ {
		st := time.Now()
		if _, err := a.Publisher.Publish(ctx, service.PublishInput{AuthorID: author.ID, Text: fmt.Sprintf("hello %d", i)}); err != nil {
			panic(err)
		}
		pubDurations = append(pubDurations, time.Since(st))
	}

	deadline := time.Now().Add(2 * time.Minute)
	var pending int64
	for time.Now().Before(deadline) {
		a.DB.Model(&model.Outbox{}).Where("status IN ?", []string{model.OutboxPending, model.OutboxProcessing}).Count(&pending)
		if pending == 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	_ = stop(ctx)

	var rows []model.Outbox
	a.DB.Where("status = ?", model.OutboxDone).Find(&rows)
	land := make([]time.Duration, 0, len(rows))
	for _, r := range rows {
		if r.ProcessedAt != nil {
			land = append(land, r.ProcessedAt.Sub(r.CreatedAt))
		}
	}

	readDurations := make([]time.Duration, 0, reads)
	for i := 0; i < reads && len(fans) > 0; i++ {
		st := time.Now()
		if _, err := a.Timeline.Home(ctx, fans[i%len(fans)].ID, 20, nil, nil); err != nil {
			panic(err)
		}
		readDurations = append(readDurations, time.Since(st))
	}

	fmt.Printf("N=%d POSTS=%d WORKERS=%d BATCH=%d CLAIM=%d\n", n, posts, cfg.Worker.Workers, cfg.Worker.BatchSize, cfg.Worker.ClaimLimit)
	fmt.Printf("Publish tx latency: avg=%v p95=%v p99=%v\n", bench.Avg(pubDurations), bench.Pct(pubDurations, 0.95), bench.Pct(pubDurations, 0.99))
	fmt.Printf("Fanout landing (outbox->done): samples=%d pending=%d avg=%v p95=%v p99=%v\n", len(land), pending, bench.Avg(land), bench.Pct(land, 0.95), bench.Pct(land, 0.99))
	fmt.Printf("Home read (limit=20): samples=%d avg=%v p95=%v p99=%v\n", len(readDurations), bench.Avg(readDurations), bench.Pct(readDurations, 0.95), bench.Pct(readDurations, 0.99))
}
