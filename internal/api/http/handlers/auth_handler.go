package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/api/dto"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/auth"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/service"
	apperrors "github.com/mateusdiasyt/oquefazeremfoz-sub002/pkg/util/errorutil"
)

// AuthFlows is the part of service.AuthService the HTTP layer drives.
type AuthFlows interface {
	Register(ctx context.Context, in service.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	Logout(ctx context.Context, token string) error
	LogoutEverywhere(ctx context.Context, userID string) (int64, error)
	ListSessions(ctx context.Context, userID string) ([]domain.Session, error)
	RevokeSession(ctx context.Context, userID, sessionID string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	RequestPasswordReset(ctx context.Context, email string) (*domain.PasswordResetToken, error)
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	SweepExpiredSessions(ctx context.Context) (int64, error)
}

// AuthHandler exposes login, logout, session and password endpoints.
type AuthHandler struct {
	auth    AuthFlows
	cookies auth.CookieJar
}

// NewAuthHandler constructs handler.
func NewAuthHandler(flows AuthFlows, cookies auth.CookieJar) *AuthHandler {
	return &AuthHandler{auth: flows, cookies: cookies}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	user, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Company:  req.Company,
	})
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{"user": dto.NewUserResponse(user)},
	})
}

// Login handles POST /auth/login. The token is set as an HTTP-only cookie and
// echoed for API callers that use the Authorization header.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	res, err := h.auth.Login(c.UserContext(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return mapError(err)
	}

	h.cookies.Set(c, res.Token, res.ExpiresAt)
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(res.User),
			"auth": dto.AuthResponse{Token: res.Token, SessionID: res.Session.ID, ExpiresAt: res.ExpiresAt},
		},
	})
}

// Logout handles POST /auth/logout. It succeeds whether or not the session
// still exists.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext(), h.cookies.Token(c)); err != nil {
		return mapError(err)
	}
	h.cookies.Clear(c)
	return c.SendStatus(http.StatusNoContent)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user":       dto.NewUserResponse(principal.User),
			"session_id": principal.Session.ID,
			"expires_at": principal.Session.ExpiresAt,
		},
	})
}

// LogoutAll handles POST /auth/logout-all.
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	n, err := h.auth.LogoutEverywhere(c.UserContext(), principal.UserID())
	if err != nil {
		return mapError(err)
	}
	h.cookies.Clear(c)
	return c.JSON(fiber.Map{"data": fiber.Map{"revoked": n}})
}

// Sessions handles GET /auth/sessions.
func (h *AuthHandler) Sessions(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	sessions, err := h.auth.ListSessions(c.UserContext(), principal.UserID())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponses(sessions, principal.Session.ID)})
}

// RevokeSession handles DELETE /auth/sessions/:id.
func (h *AuthHandler) RevokeSession(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id := c.Params("id")
	if err := h.auth.RevokeSession(c.UserContext(), principal.UserID(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperrors.NewNotFound("session", map[string]any{"id": id})
		}
		return mapError(err)
	}
	if id == principal.Session.ID {
		h.cookies.Clear(c)
	}
	return c.SendStatus(http.StatusNoContent)
}

// ChangePassword handles POST /auth/password/change. Every session, the
// current one included, is revoked.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("current_password and new_password required", nil)
	}

	if err := h.auth.ChangePassword(c.UserContext(), principal.UserID(), req.CurrentPassword, req.NewPassword); err != nil {
		return mapError(err)
	}
	h.cookies.Clear(c)
	return c.SendStatus(http.StatusNoContent)
}

// RequestPasswordReset handles POST /auth/password/reset/request. The answer
// is the same whether or not the email exists.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" {
		return apperrors.NewValidationError("email required", nil)
	}
	if _, err := h.auth.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": fiber.Map{"message": "if the account exists, a reset link has been sent"},
	})
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Token == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("token and new_password required", nil)
	}
	if err := h.auth.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return mapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}
