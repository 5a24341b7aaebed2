package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atrium-console/atrium/internal/app"
	"github.com/atrium-console/atrium/internal/approvals"
	"github.com/atrium-console/atrium/internal/auth"
	"github.com/atrium-console/atrium/internal/authz"
	"github.com/atrium-console/atrium/internal/gateway"
	"github.com/atrium-console/atrium/internal/observability"
	"github.com/atrium-console/atrium/internal/platform/cache"
	"github.com/atrium-console/atrium/internal/platform/db"
	"github.com/atrium-console/atrium/internal/roles"
	"github.com/atrium-console/atrium/internal/shared"
	"github.com/atrium-console/atrium/internal/tenant"
	"github.com/atrium-console/atrium/internal/users"
	"github.com/atrium-console/atrium/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
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

	sessionManager := shared.NewSessionManager(redisClient, "atrium_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	tenantStore := tenant.NewRedisStore(redisClient)
	metrics := observability.NewMetrics()

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Warn("task client close", slog.Any("error", err))
		}
	}()

	approvalCache := approvals.NewCache(redisClient, cfg.ApprovalsCacheTTL)
	recorder := approvals.NewAuditRecorder(pool, logger)

	// Two-phase wiring: the dispatcher needs the approvals service as its
	// interception sink, and the approvals service reads collections through
	// the same dispatcher.
	var approvalService *approvals.Service
	sink := gateway.SinkFunc(func(ctx context.Context, pending gateway.PendingApproval) {
		approvalService.Intercepted(ctx, pending)
	})

	client, err := gateway.NewClient(gateway.ClientConfig{
		BaseURL:        cfg.UpstreamBaseURL,
		Doer:           &http.Client{Timeout: cfg.UpstreamTimeout},
		Invalidator:    cache.NewRedisInvalidator(redisClient, logger),
		InvalidateKeys: []string{approvals.CacheKeyPending, approvals.CacheKeyList},
		Sink:           sink,
		Metrics:        metrics,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("init gateway client", slog.Any("error", err))
		os.Exit(1)
	}

	approvalService = approvals.NewService(client, approvalCache, recorder, taskClient, logger)

	guard := authz.Guard{Logger: logger}

	authService := auth.NewService(client, auth.Breakglass{
		Email:        cfg.BreakglassEmail,
		PasswordHash: cfg.BreakglassPasswordHash,
	}, logger)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, tenantStore)

	roleService, err := roles.NewService(client, logger)
	if err != nil {
		logger.Error("init roles service", slog.Any("error", err))
		os.Exit(1)
	}
	roleHandler := roles.NewHandler(logger, roleService, guard)

	userService := users.NewService(client, logger)
	userHandler := users.NewHandler(logger, userService, guard)

	tenantHandler := tenant.NewHandler(logger, guard)
	approvalHandler := approvals.NewHandler(logger, approvalService, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		TenantStore:     tenantStore,
		AuthHandler:     authHandler,
		TenantHandler:   tenantHandler,
		RolesHandler:    roleHandler,
		UsersHandler:    userHandler,
		ApprovalHandler: approvalHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
