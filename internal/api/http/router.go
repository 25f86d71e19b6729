package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/field-ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/field-ticket-service/internal/auth"
	"github.com/spec-kit/field-ticket-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Workflow       *handlers.WorkflowHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	// StorageDir and StoragePrefix serve locally stored documents; empty
	// StorageDir disables the route.
	StorageDir    string
	StoragePrefix string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}
	if cfg.StorageDir != "" {
		app.Static(cfg.StoragePrefix, cfg.StorageDir, fiber.Static{Browse: false})
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Users.Me)

	app.Get("/users", cfg.AuthMiddleware.Handle, cfg.Users.List)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/export", cfg.Tickets.ExportTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)

	tickets.Get("/:id/timeline", cfg.Workflow.Timeline)
	tickets.Get("/:id/activities", cfg.Workflow.ListActivities)
	tickets.Post("/:id/activities", cfg.Workflow.AppendActivity)
	tickets.Post("/:id/end-working", cfg.Workflow.EndWorking)
	tickets.Post("/:id/complete", cfg.Workflow.Complete)
	tickets.Post("/:id/revisit", cfg.Workflow.Revisit)
}
