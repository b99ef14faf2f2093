package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/ines-erp/ledger/internal/app"
	"github.com/ines-erp/ledger/internal/observability"
	"github.com/ines-erp/ledger/jobs"
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
	if cfg.PGDSN == "" || cfg.RedisAddr == "" {
		logger.Error("worker requires PG_DSN and REDIS_ADDR")
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	ledger, err := app.Build(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("build ledger", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			logger.Warn("close ledger", slog.Any("error", err))
		}
	}()

	integrityJob := jobs.NewIntegrityJob(ledger.Store, ledger.Reports, logger, metrics.Jobs())
	warmupJob := jobs.NewBudgetWarmupJob(ledger.Budgets, logger, metrics.Jobs())

	integrityTask, err := jobs.NewIntegrityTask(jobs.IntegrityPayload{})
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewBudgetWarmupTask(jobs.BudgetWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerIntegrity, Handler: integrityJob.Handle},
			{Type: jobs.TaskBudgetWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Schedule: cfg.IntegritySchedule, Task: integrityTask},
			{Schedule: cfg.WarmupSchedule, Task: warmupTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler(), ReadTimeout: cfg.AppReadTimeout}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() { _ = metricsServer.Close() }()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
