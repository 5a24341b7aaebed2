package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/atrium-console/atrium/internal/app"
	"github.com/atrium-console/atrium/internal/approvals"
	"github.com/atrium-console/atrium/internal/gateway"
	"github.com/atrium-console/atrium/internal/platform/cache"
	"github.com/atrium-console/atrium/internal/platform/db"
	"github.com/atrium-console/atrium/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	// The worker only reads collections, so it dispatches without a sink and
	// without an invalidator: a re-warm must never re-enqueue itself.
	client, err := gateway.NewClient(gateway.ClientConfig{
		BaseURL: cfg.UpstreamBaseURL,
		Doer:    &http.Client{Timeout: cfg.UpstreamTimeout},
		Logger:  logger,
	})
	if err != nil {
		logger.Error("init gateway client", slog.Any("error", err))
		os.Exit(1)
	}

	approvalCache := approvals.NewCache(redisClient, cfg.ApprovalsCacheTTL)
	recorder := approvals.NewAuditRecorder(pool, logger)
	approvalService := approvals.NewService(client, approvalCache, recorder, nil, logger)

	refreshTask, err := approvals.NewRefreshTask(nil)
	if err != nil {
		logger.Error("build refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Approvals: approvalService,
		Cron: []jobs.CronRegistration{
			{Spec: "*/15 * * * *", Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
