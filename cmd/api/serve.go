package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/field-ticket-service/internal/api/http"
	"github.com/spec-kit/field-ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/field-ticket-service/internal/auth"
	"github.com/spec-kit/field-ticket-service/internal/persistence"
	"github.com/spec-kit/field-ticket-service/internal/service"
	"github.com/spec-kit/field-ticket-service/internal/storage"
	"github.com/spec-kit/field-ticket-service/internal/worker"
)

func newServeCommand() *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), shutdownTimeout)
		},
	}
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 15*time.Second, "Maximum time to wait for graceful shutdown")
	return cmd
}

func serve(parent context.Context, shutdownTimeout time.Duration) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, logger := rt.cfg, rt.logger

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, rt.pool, logger); err != nil {
			return err
		}
	}

	rt.redis = persistence.NewRedis(ctx, cfg.Redis, logger)
	var publisher service.Publisher
	if rt.redis != nil {
		publisher = rt.redis
	}
	notifications := service.NewNotificationService(rt.events, publisher, logger, rt.metrics, cfg.Notification)
	worker.StartNotificationWorker(notifications, logger)

	files, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	deps := rt.deps()
	authService := service.NewAuthService(deps, tokens, cfg.Auth.BcryptCost)
	ticketService := service.NewTicketService(deps, cfg.Listing)
	workflowService := service.NewWorkflowService(deps, files, service.WorkflowOptions{
		EnforceStageOrder: cfg.Workflow.EnforceStageOrder,
		MaxFileSize:       cfg.Upload.MaxFileSize(),
	})

	app := httptransport.NewApp(httptransport.AppConfig{
		Name:           cfg.App.Name,
		BodyLimit:      cfg.App.BodyLimit(),
		ReadTimeout:    cfg.App.RequestTimeout(),
		RequestTimeout: cfg.App.RequestTimeout(),
	}, logger, rt.metrics)

	presenter := handlers.NewPresenter(files, logger)
	readiness := map[string]handlers.Pinger{"store": rt.store, "redis": nil}
	if rt.redis != nil {
		readiness["redis"] = rt.redis
	}
	routes := httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Users:          handlers.NewUsersHandler(authService, presenter),
		Tickets:        handlers.NewTicketsHandler(ticketService, presenter),
		Workflow:       handlers.NewWorkflowHandler(workflowService, presenter),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, rt.store),
		Metrics:        rt.metrics,
	}
	if local, ok := files.(*storage.Local); ok {
		routes.StorageDir = local.Root
		routes.StoragePrefix = cfg.Storage.PublicURL
	}
	httptransport.RegisterRoutes(app, routes)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return app.ShutdownWithTimeout(shutdownTimeout)
}
