package main

import (
	"context"
	"fmt"
	"os"

	"github.com/d60-Lab/home-timeline/config"
	"github.com/d60-Lab/home-timeline/internal/app"
	"github.com/d60-Lab/home-timeline/pkg/logger"
)

func main() {
	root := newRootCmd(openApp)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Log.Level, "console"); err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}
