package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/field-ticket-service/internal/config"
	"github.com/spec-kit/field-ticket-service/internal/events"
	"github.com/spec-kit/field-ticket-service/internal/observability"
	"github.com/spec-kit/field-ticket-service/internal/persistence"
	"github.com/spec-kit/field-ticket-service/internal/repository"
	"github.com/spec-kit/field-ticket-service/internal/repository/memory"
	"github.com/spec-kit/field-ticket-service/internal/service"
)

// runtime holds the infrastructure shared by every command.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Metrics
	pool    *pgxpool.Pool
	redis   *persistence.Redis
	store   repository.Store
	events  events.Dispatcher
}

// newRuntime loads configuration and opens the store. Without POSTGRES_DSN
// the process runs on the in-memory store.
func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.Logger)
	rt := &runtime{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics("field_tickets"),
		events:  events.NewInMemoryDispatcher(),
	}

	rt.pool, err = persistence.OpenPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if rt.pool == nil {
		logger.Warn("POSTGRES_DSN not provided; using in-memory store")
		rt.store = memory.NewStore()
	} else {
		rt.store = repository.NewPostgresStore(rt.pool)
	}
	return rt, nil
}

func (rt *runtime) deps() service.Deps {
	return service.Deps{
		Store:      rt.store,
		Dispatcher: rt.events,
		Metrics:    rt.metrics,
		Logger:     rt.logger,
	}
}

func (rt *runtime) close() {
	rt.redis.Close()
	if rt.pool != nil {
		rt.pool.Close()
	}
	_ = rt.logger.Sync()
}
