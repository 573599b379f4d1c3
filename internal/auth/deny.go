package auth

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/config"
)

// DenyPolicy turns an authentication failure into a response: a redirect to
// the login entry point for browsers, a structured 401 for API callers.
type DenyPolicy struct {
	LoginPath   string
	APIPrefixes []string
}

// NewDenyPolicy builds the policy from edge settings.
func NewDenyPolicy(cfg config.EdgeConfig) DenyPolicy {
	return DenyPolicy{LoginPath: cfg.LoginPath, APIPrefixes: cfg.APIPrefixes}
}

// Deny writes the unauthenticated response.
func (p DenyPolicy) Deny(c *fiber.Ctx) error {
	if p.WantsJSON(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": fiber.Map{
			"code":    "UNAUTHORIZED",
			"message": "authentication required",
		}})
	}

	loginPath := p.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}
	return c.Redirect(loginPath+"?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
}

// WantsJSON reports whether the caller is API-style rather than a browser.
func (p DenyPolicy) WantsJSON(c *fiber.Ctx) bool {
	for _, prefix := range p.APIPrefixes {
		if config.PathHasPrefix(c.Path(), prefix) {
			return true
		}
	}
	if c.Get(fiber.HeaderAuthorization) != "" {
		return true
	}
	accept := strings.ToLower(c.Get(fiber.HeaderAccept))
	return strings.Contains(accept, fiber.MIMEApplicationJSON) && !strings.Contains(accept, fiber.MIMETextHTML)
}
