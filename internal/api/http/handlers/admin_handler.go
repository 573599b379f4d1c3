package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/api/dto"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/auth"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/observability"
	apperrors "github.com/mateusdiasyt/oquefazeremfoz-sub002/pkg/util/errorutil"
)

// RoleAdmin is the part of service.AuthorizationService the admin API drives.
type RoleAdmin interface {
	RolesOf(ctx context.Context, userID string) (domain.RoleSet, error)
	GrantAs(ctx context.Context, actor *auth.Principal, userID string, role domain.RoleName) error
}

// AdminHandler exposes administrative session and role operations. Routes are
// mounted behind the gatekeeper, the session middleware and the access policy.
type AdminHandler struct {
	roles   RoleAdmin
	auth    AuthFlows
	metrics *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(roles RoleAdmin, flows AuthFlows, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{roles: roles, auth: flows, metrics: metrics}
}

// Dashboard handles GET /admin.
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user":     dto.NewUserResponse(principal.User),
			"is_admin": auth.IsAdmin(principal.Roles),
		},
	})
}

// UserRoles handles GET /admin/users/:id/roles.
func (h *AdminHandler) UserRoles(c *fiber.Ctx) error {
	roles, err := h.roles.RolesOf(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"roles": dto.RoleNames(roles)}})
}

// GrantRole handles POST /admin/users/:id/roles.
func (h *AdminHandler) GrantRole(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.GrantRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	role, err := domain.ParseRoleName(req.Role)
	if err != nil {
		return mapError(err)
	}

	userID := c.Params("id")
	if err := h.roles.GrantAs(c.UserContext(), principal, userID, role); err != nil {
		return mapError(err)
	}
	roles, err := h.roles.RolesOf(c.UserContext(), userID)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"roles": dto.RoleNames(roles)}})
}

// RevokeUserSessions handles DELETE /admin/users/:id/sessions.
func (h *AdminHandler) RevokeUserSessions(c *fiber.Ctx) error {
	n, err := h.auth.LogoutEverywhere(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"revoked": n}})
}

// SweepSessions handles POST /admin/sessions/sweep.
func (h *AdminHandler) SweepSessions(c *fiber.Ctx) error {
	n, err := h.auth.SweepExpiredSessions(c.UserContext())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": n}})
}

// Metrics handles GET /admin/metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
