package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/config"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
	apperrors "github.com/mateusdiasyt/oquefazeremfoz-sub002/pkg/util/errorutil"
)

// RequireAuthenticated ensures a principal was loaded by SessionMiddleware.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireRole ensures the principal holds at least one of the allowed roles.
func RequireRole(allowed ...domain.RoleName) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowed) == 0 {
			return c.Next()
		}
		if !HasAnyRole(principal.Roles, allowed...) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAdmin ensures the principal is an administrator.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.RoleAdmin)
}

// EnforcePolicy applies the role list of the longest matching policy rule.
// Paths outside every rule pass through.
func EnforcePolicy(policy *config.AccessPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rule, ok := policy.Match(c.Path())
		if !ok {
			return c.Next()
		}
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !HasAnyRole(principal.Roles, rule.Roles...) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
