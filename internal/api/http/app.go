package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/field-ticket-service/internal/observability"
)

// AppConfig sizes the fiber application.
type AppConfig struct {
	Name           string
	BodyLimit      int
	ReadTimeout    time.Duration
	RequestTimeout time.Duration
}

// NewApp builds the fiber app with the shared error envelope and global middlewares.
func NewApp(cfg AppConfig, logger *zap.Logger, metrics *observability.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.Name,
		BodyLimit:             cfg.BodyLimit,
		ReadTimeout:           cfg.ReadTimeout,
		ErrorHandler:          ErrorHandler(logger, metrics),
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, logger, metrics, cfg.RequestTimeout)
	return app
}
