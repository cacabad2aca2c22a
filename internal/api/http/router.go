package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/lifecycle-engine/internal/api/http/handlers"
	"github.com/spec-kit/lifecycle-engine/internal/auth"
	"github.com/spec-kit/lifecycle-engine/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Workflows      *handlers.WorkflowDefinitionsHandler
	Policies       *handlers.SlaPoliciesHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Authoring surfaces require the admin
// role; lifecycle triggers accept agents as well.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/token", cfg.Auth.Token)

	admin := auth.RequireRole(domain.ServiceRoleAdmin)
	anyRole := auth.RequireRole(domain.ServiceRoleAdmin, domain.ServiceRoleAgent)

	workflows := app.Group("/workflows/definitions", cfg.AuthMiddleware.Handle)
	workflows.Post("", admin, cfg.Workflows.Create)
	workflows.Get("", anyRole, cfg.Workflows.List)
	workflows.Get("/:id", anyRole, cfg.Workflows.Get)
	workflows.Put("/:id", admin, cfg.Workflows.Reconcile)

	policies := app.Group("/sla/policies", cfg.AuthMiddleware.Handle)
	policies.Post("", admin, cfg.Policies.Create)
	policies.Get("", anyRole, cfg.Policies.List)
	policies.Get("/:id", anyRole, cfg.Policies.Get)
	policies.Put("/:id", admin, cfg.Policies.Update)

	tickets := app.Group("/tickets/:id", cfg.AuthMiddleware.Handle, anyRole)
	tickets.Post("/lifecycle/created", cfg.Tickets.Created)
	tickets.Post("/transitions", cfg.Tickets.Transition)
	tickets.Get("/history", cfg.Tickets.History)
}
