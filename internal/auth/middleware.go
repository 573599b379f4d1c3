package auth

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
	apperrors "github.com/mateusdiasyt/oquefazeremfoz-sub002/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller after the session store
// confirmed the token.
type Principal struct {
	User    *domain.User
	Roles   domain.RoleSet
	Session *domain.Session
	Token   string
}

// UserID returns the authenticated user id.
func (p *Principal) UserID() string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.ID
}

// Authenticator resolves a token into a principal against the session store.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// SessionMiddleware performs the application-layer session check: unlike the
// edge gatekeeper it consults the session store, so revoked sessions stop here.
type SessionMiddleware struct {
	authn   Authenticator
	cookies CookieJar
	deny    DenyPolicy
	logger  *zap.Logger
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(authn Authenticator, cookies CookieJar, deny DenyPolicy, logger *zap.Logger) *SessionMiddleware {
	return &SessionMiddleware{authn: authn, cookies: cookies, deny: deny, logger: logger}
}

// Handle enforces an authenticated session for downstream handlers.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	token := m.cookies.Token(c)
	if token == "" {
		return m.deny.Deny(c)
	}

	principal, err := m.authn.Authenticate(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return apperrors.NewServiceUnavailable(err)
		}
		m.logger.Debug("session rejected", zap.String("path", c.Path()), zap.Error(err))
		m.cookies.Clear(c)
		return m.deny.Deny(c)
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
