package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/home-timeline/config"
	"github.com/d60-Lab/home-timeline/internal/api"
	"github.com/d60-Lab/home-timeline/internal/api/handler"
	"github.com/d60-Lab/home-timeline/internal/app"
	"github.com/d60-Lab/home-timeline/internal/scheduler"
	"github.com/d60-Lab/home-timeline/pkg/logger"
	"github.com/d60-Lab/home-timeline/pkg/tracing"
)

// @title Home Timeline API
// @version 1.0
// @description 首页时间线扇出与读取服务
// @BasePath /
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	stopDispatcher := a.Dispatcher.Start(cfg.Worker.Workers)
	stopOutbox := a.Outbox.Start()

	sched := scheduler.New(30 * time.Minute)
	if err := sched.AddJob("feed_cleanup", cfg.Scheduler.CleanupSpec, func(ctx context.Context) error {
		n, err := a.Engine.Cleaner.Run(ctx)
		if err != nil {
			return err
		}
		logger.Info("expired feeds removed", zap.Int("count", n))
		return nil
	}); err != nil {
		return err
	}
	sched.Start()

	h := handler.New(a.Relationships, a.Timeline, a.Publisher)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(cfg, h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer done()

	// 先停入口，再停生产者，最后排空队列
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler stop", zap.Error(err))
	}
	if err := stopOutbox(shutdownCtx); err != nil {
		logger.Warn("outbox stop", zap.Error(err))
	}
	if err := stopDispatcher(shutdownCtx); err != nil {
		logger.Warn("dispatcher drain", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
	return nil
}
