package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jengzang/antrak/internal/app"
	"github.com/jengzang/antrak/internal/config"
	"github.com/jengzang/antrak/internal/observability"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := observability.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化数据库和服务
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize", slog.Any("error", err))
		os.Exit(1)
	}
	defer a.Close()

	// 启动服务器
	if err := a.Serve(ctx); err != nil {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
