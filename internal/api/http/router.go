package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/api/http/handlers"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/auth"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/config"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/edge"
)

// AdminPrefix is where the admin surface is mounted. It always requires ADMIN,
// whatever the access policy says.
const AdminPrefix = "/admin"

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Auth       *handlers.AuthHandler
	Admin      *handlers.AdminHandler
	Sessions   *auth.SessionMiddleware
	Gatekeeper *edge.Gatekeeper
	Policy     *config.AccessPolicy
}

// RegisterRoutes wires HTTP routes. Admin routes run the stateless gatekeeper
// first, then the store-backed session check, the ADMIN gate and finally the
// access policy for finer rules.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	protected := authGroup.Group("", cfg.Sessions.Handle, auth.RequireAuthenticated())
	protected.Get("/me", cfg.Auth.Me)
	protected.Post("/logout-all", cfg.Auth.LogoutAll)
	protected.Get("/sessions", cfg.Auth.Sessions)
	protected.Delete("/sessions/:id", cfg.Auth.RevokeSession)
	protected.Post("/password/change", cfg.Auth.ChangePassword)

	admin := app.Group(AdminPrefix,
		scoped(AdminPrefix, cfg.Gatekeeper.Handler()),
		scoped(AdminPrefix, cfg.Sessions.Handle),
		scoped(AdminPrefix, auth.RequireAdmin()),
		scoped(AdminPrefix, auth.EnforcePolicy(cfg.Policy)),
	)
	admin.Get("", cfg.Admin.Dashboard)
	admin.Get("/users/:id/roles", cfg.Admin.UserRoles)
	admin.Post("/users/:id/roles", cfg.Admin.GrantRole)
	admin.Delete("/users/:id/sessions", cfg.Admin.RevokeUserSessions)
	admin.Post("/sessions/sweep", cfg.Admin.SweepSessions)
	admin.Get("/metrics", cfg.Admin.Metrics)
}

// GatekeeperPrefixes returns the policy prefixes plus the admin mount, so the
// edge check covers the admin surface even when the policy does not.
func GatekeeperPrefixes(policy *config.AccessPolicy) []string {
	prefixes := policy.Prefixes()
	for _, prefix := range prefixes {
		if config.PathHasPrefix(AdminPrefix, prefix) {
			return prefixes
		}
	}
	return append(prefixes, AdminPrefix)
}

// scoped limits group middleware to paths under prefix on a segment boundary.
// fiber mounts group handlers by raw string prefix, so "/administrator" would
// otherwise run them too.
func scoped(prefix string, h fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !config.PathHasPrefix(c.Path(), prefix) {
			return c.Next()
		}
		return h(c)
	}
}
