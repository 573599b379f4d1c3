package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/config"
)

// CookieJar writes and reads the HTTP-only session cookie.
type CookieJar struct {
	cfg config.CookieConfig
}

// NewCookieJar builds a jar from cookie settings.
func NewCookieJar(cfg config.CookieConfig) CookieJar {
	return CookieJar{cfg: cfg}
}

// Name returns the cookie name.
func (j CookieJar) Name() string {
	return j.cfg.Name
}

// Set stores token in the session cookie until expiresAt.
func (j CookieJar) Set(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     j.cfg.Name,
		Value:    token,
		Path:     j.path(),
		Domain:   j.cfg.Domain,
		Expires:  expiresAt,
		Secure:   j.cfg.Secure,
		HTTPOnly: true,
		SameSite: j.sameSite(),
	})
}

// Clear expires the session cookie on the client.
func (j CookieJar) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     j.cfg.Name,
		Value:    "",
		Path:     j.path(),
		Domain:   j.cfg.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   j.cfg.Secure,
		HTTPOnly: true,
		SameSite: j.sameSite(),
	})
}

// Token extracts the session token from the cookie, falling back to an
// "Authorization: Bearer" header for API callers.
func (j CookieJar) Token(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Cookies(j.cfg.Name)); token != "" {
		return token
	}
	return BearerToken(c.Get(fiber.HeaderAuthorization))
}

// BearerToken returns the token from an Authorization header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func (j CookieJar) path() string {
	if j.cfg.Path == "" {
		return "/"
	}
	return j.cfg.Path
}

func (j CookieJar) sameSite() string {
	switch j.cfg.SameSite {
	case "strict":
		return fiber.CookieSameSiteStrictMode
	case "none":
		return fiber.CookieSameSiteNoneMode
	default:
		return fiber.CookieSameSiteLaxMode
	}
}
