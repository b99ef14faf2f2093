package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/accounting/accounts"
	"github.com/ines-erp/ledger/internal/accounting/budgets"
	"github.com/ines-erp/ledger/internal/accounting/journals"
	"github.com/ines-erp/ledger/internal/accounting/periods"
	"github.com/ines-erp/ledger/internal/accounting/reports"
	"github.com/ines-erp/ledger/internal/audit"
	"github.com/ines-erp/ledger/internal/observability"
	"github.com/ines-erp/ledger/internal/platform/cache"
	"github.com/ines-erp/ledger/internal/platform/db"
)

// Ledger bundles the wired ledger components shared by the server and the worker.
type Ledger struct {
	Store    accounting.Gateway
	Accounts *accounts.Registry
	Periods  *periods.Manager
	Journals *journals.Engine
	Budgets  *budgets.Tracker
	Reports  *reports.Generator
	Timeline *audit.Service
	Cache    *cache.Versioned
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	closers  []func() error
}

// Build connects the configured backends and constructs every component.
// Without PG_DSN the ledger runs on the in-memory store; without REDIS_ADDR
// budget actuals are not cached.
func Build(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{}
	sinks := audit.Multi{audit.LogSink{Logger: logger}}

	if cfg.PGDSN != "" {
		if cfg.MigrateOnStart {
			version, err := db.Migrate(cfg.PGDSN)
			if err != nil {
				return nil, err
			}
			logger.Info("schema migrated", slog.Uint64("version", uint64(version)))
		}
		pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
		if err != nil {
			return nil, err
		}
		l.Pool = pool
		l.closers = append(l.closers, func() error { pool.Close(); return nil })
		l.Store = accounting.NewRepository(pool)
		pgSink := audit.NewPostgresSink(pool)
		sinks = append(sinks, pgSink)
		l.Timeline = audit.NewService(pgSink)
	} else {
		logger.Warn("PG_DSN not set, using in-memory ledger store")
		memSink := audit.NewMemorySink()
		l.Store = accounting.NewMemoryStore()
		sinks = append(sinks, memSink)
		l.Timeline = audit.NewService(memSink)
	}

	if len(cfg.KafkaBrokers) > 0 {
		writer := audit.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		l.closers = append(l.closers, writer.Close)
		sinks = append(sinks, audit.NewKafkaSink(writer))
	}

	if cfg.RedisAddr != "" {
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			_ = l.Close()
			return nil, err
		}
		l.Redis = client
		l.closers = append(l.closers, client.Close)
		l.Cache = cache.NewVersioned(client, "ledger", cfg.BudgetCacheTTL)
	}

	recorder := accounting.NewRecorder(sinks, logger)
	l.Accounts = accounts.NewRegistry(l.Store, recorder)
	l.Periods = periods.NewManager(l.Store, recorder)

	engineOpts := []journals.Option{
		journals.WithMaxRetries(cfg.PostingMaxRetries),
		journals.WithLogger(logger),
	}
	if metrics != nil {
		engineOpts = append(engineOpts, journals.WithObserver(metrics))
	}
	trackerOpts := []budgets.Option{budgets.WithLogger(logger)}
	if l.Cache != nil {
		engineOpts = append(engineOpts, journals.WithNotifier(l.Cache))
		trackerOpts = append(trackerOpts, budgets.WithCache(l.Cache))
	}
	l.Journals = journals.NewEngine(l.Store, l.Periods, recorder, engineOpts...)
	l.Budgets = budgets.NewTracker(l.Store, l.Accounts, recorder, trackerOpts...)
	l.Reports = reports.NewGenerator(l.Store)
	return l, nil
}

// Close releases every backend connection opened by Build.
func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	var errs []error
	for i := len(l.closers) - 1; i >= 0; i-- {
		if err := l.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	l.closers = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("app: close ledger: %w", err)
	}
	return nil
}
