package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-agent/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	Chat   *handlers.ChatHandler
	Outbox *handlers.OutboxHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/chat", cfg.Chat.Chat)
	app.Get("/outbox", cfg.Outbox.List)
}
