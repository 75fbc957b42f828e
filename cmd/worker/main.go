package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/quartermaster-am/quartermaster/internal/app"
	"github.com/quartermaster-am/quartermaster/internal/audit"
	"github.com/quartermaster-am/quartermaster/internal/identity"
	"github.com/quartermaster-am/quartermaster/internal/platform/cache"
	"github.com/quartermaster-am/quartermaster/internal/platform/db"
	"github.com/quartermaster-am/quartermaster/jobs"
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

	tokenCache := identity.NewTokenCache(redisClient, cfg.SessionTTL)
	provider := identity.NewClient(identity.ClientConfig{
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		Authority:    cfg.OIDCAuthority,
		RedirectURI:  cfg.OIDCRedirectURI,
	}, tokenCache, logger)
	directory := identity.NewDirectory(cfg.DirectoryBaseURL, provider, logger)
	dirCache := identity.NewDirectoryCache(redisClient, cfg.SessionTTL)

	auditLogger := audit.NewLogger(pool, logger)

	refreshJob := jobs.NewDirectoryRefreshJob(directory, dirCache, logger)
	sweepJob := jobs.NewAuditSweepJob(auditLogger, cfg.AuditRetention, logger)

	refreshAllTask, err := jobs.NewDirectoryRefreshTask("")
	if err != nil {
		logger.Error("build refresh task", slog.Any("error", err))
		os.Exit(1)
	}
	sweepTask, err := jobs.NewAuditSweepTask(0)
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDirectoryRefresh, Handler: refreshJob.Handle},
			{Type: jobs.TaskAuditSweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/30 * * * *", Task: refreshAllTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 3 * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker")
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
