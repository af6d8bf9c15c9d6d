package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/hirepipe/internal/cache"
	"github.com/kiranshivaraju/hirepipe/internal/catalog"
	"github.com/kiranshivaraju/hirepipe/internal/compat"
	"github.com/kiranshivaraju/hirepipe/internal/config"
	"github.com/kiranshivaraju/hirepipe/internal/events"
	"github.com/kiranshivaraju/hirepipe/internal/oracle/providers"
	"github.com/kiranshivaraju/hirepipe/internal/store"
	"github.com/kiranshivaraju/hirepipe/internal/store/memory"
	"github.com/kiranshivaraju/hirepipe/internal/worker"
	"github.com/kiranshivaraju/hirepipe/internal/workflow"
)

// publisher is what the workflow needs from the events backend, plus Close.
type publisher interface {
	events.Publisher
	events.Notifier
	Close() error
}

type logPublisher struct{ events.LogPublisher }

func (logPublisher) Close() error { return nil }

// application owns every long-lived component. Build it with newApplication
// and always call shutdown.
type application struct {
	cfg       *config.Config
	db        *pgxpool.Pool
	store     store.Store
	cache     *cache.RedisCache
	pool      *worker.Pool
	publisher publisher

	scores   *compat.Service
	workflow *workflow.Service
	catalog  *catalog.Service
}

func newApplication(ctx context.Context, cfg *config.Config) (_ *application, err error) {
	a := &application{cfg: cfg}
	defer func() {
		if err != nil {
			a.shutdown(context.Background())
		}
	}()

	switch cfg.Database.Driver {
	case "memory":
		a.store = memory.New()
		slog.Warn("using in-memory store; data is lost on exit")
	default:
		a.db, err = store.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		slog.Info("database connected")

		if err = store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		slog.Info("database migrations applied")
		a.store = store.NewPostgresStore(a.db)
	}

	a.cache, err = cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("create redis cache: %w", err)
	}
	if err = a.cache.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	scorer, err := providers.New(ctx, cfg.Oracle)
	if err != nil {
		return nil, fmt.Errorf("create scoring oracle: %w", err)
	}
	slog.Info("scoring oracle initialized", "provider", scorer.Name())

	if cfg.RabbitMQ.URL != "" {
		pub, perr := events.NewAMQPPublisher(cfg.RabbitMQ)
		if perr != nil {
			return nil, fmt.Errorf("create event publisher: %w", perr)
		}
		a.publisher = pub
		slog.Info("rabbitmq connected", "events_queue", cfg.RabbitMQ.EventsQueue)
	} else {
		a.publisher = logPublisher{}
		slog.Info("RABBITMQ_URL not set; events go to the log")
	}

	template, err := config.LoadStageTemplate(cfg.Stages.TemplateFile)
	if err != nil {
		return nil, err
	}

	a.pool = worker.New(cfg.Worker.PoolSize, cfg.Worker.OracleRatePerS, cfg.Worker.OracleBurst)
	a.scores = compat.NewService(a.store, a.cache, scorer, a.pool, compat.Config{
		OracleTimeout: cfg.Oracle.Timeout,
		ScoreTTL:      cfg.Redis.ScoreCacheTTL,
	})
	a.workflow = workflow.NewService(a.store, a.scores, a.publisher, a.publisher)
	a.catalog = catalog.NewService(a.store, a.scores, template)
	return a, nil
}

// shutdown lets in-flight batches finish until ctx ends, cancels whatever is
// left, then releases connections.
func (a *application) shutdown(ctx context.Context) {
	if a.pool != nil {
		if err := a.pool.Close(ctx); err != nil && !errors.Is(err, worker.ErrClosed) {
			slog.Warn("worker pool did not drain", "error", err)
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			slog.Warn("close event publisher", "error", err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Warn("close redis", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
