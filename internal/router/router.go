package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/cks-portal-api/internal/config"
	"github.com/noah-isme/cks-portal-api/internal/handler"
	"github.com/noah-isme/cks-portal-api/internal/identity"
	"github.com/noah-isme/cks-portal-api/internal/middleware"
	"github.com/noah-isme/cks-portal-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ActivityFeedHandler   *handler.ActivityFeedHandler
	EcosystemHandler      *handler.EcosystemHandler
	AdminActivityHandler  *handler.AdminActivityHandler
	AdminDirectoryHandler *handler.AdminDirectoryHandler
	SeedHandler           *handler.SeedHandler
	JWTMiddleware         fiber.Handler
	ClearLimiter          fiber.Handler
	HealthChecks          []handler.DependencyCheck
}

func next(c *fiber.Ctx) error {
	return c.Next()
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks...))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = next
	}

	hub := api.Group("/hub", jwtMiddleware, middleware.WithAuth(next, middleware.AuthOptions{Role: middleware.AuthRoleHub}))
	if deps.ActivityFeedHandler != nil {
		deps.ActivityFeedHandler.Register(hub.Group("/activities"), deps.ClearLimiter)
	}
	if deps.EcosystemHandler != nil {
		deps.EcosystemHandler.RegisterHub(hub.Group("/ecosystem"))
	}

	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(identity.RoleAdmin))
	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin.Group("/activities"))
		deps.AdminActivityHandler.RegisterDeleted(admin.Group("/deleted"))
	}
	if deps.EcosystemHandler != nil {
		deps.EcosystemHandler.RegisterAdmin(admin.Group("/ecosystem"))
	}
	if deps.AdminDirectoryHandler != nil {
		deps.AdminDirectoryHandler.RegisterDirectory(admin.Group("/directory"))
		deps.AdminDirectoryHandler.RegisterAssignments(admin.Group("/assignments"))
	}

	// Seed tooling authenticates with its own token.
	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/tools/seed"))
	}
}
