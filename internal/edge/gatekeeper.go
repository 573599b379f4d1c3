// Package edge implements the stateless gatekeeper that runs in front of the
// origin. It verifies session tokens with the shared secret alone and never
// touches the session store, so a revoked but unexpired token still passes
// here until it expires (or exceeds MaxTokenAge). The origin's session
// middleware is what enforces revocation.
package edge

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/auth"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/config"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/observability"
)

const claimsKey = "edge_claims"

// ErrTokenTooOld rejects tokens issued longer ago than the edge staleness bound.
var ErrTokenTooOld = errors.New("token older than edge max age")

// State is the gatekeeper's view of one request.
type State int

const (
	NoToken State = iota
	TokenPresent
	Verified
	Rejected
)

func (s State) String() string {
	switch s {
	case NoToken:
		return "NoToken"
	case TokenPresent:
		return "TokenPresent"
	case Verified:
		return "Verified"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Decision is the outcome of evaluating a token. TokenPresent is transient:
// Evaluate always resolves it to Verified or Rejected.
type Decision struct {
	State  State
	Claims *auth.Claims
	Reason error
}

// Allowed reports whether the request may proceed to the origin.
func (d Decision) Allowed() bool {
	return d.State == Verified
}

// Gatekeeper filters requests under protected path prefixes.
type Gatekeeper struct {
	secret      []byte
	prefixes    []string
	maxTokenAge time.Duration
	cookies     auth.CookieJar
	deny        auth.DenyPolicy
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// Option customizes a Gatekeeper.
type Option func(*Gatekeeper)

// WithClock overrides the verification clock.
func WithClock(now func() time.Time) Option {
	return func(g *Gatekeeper) { g.now = now }
}

// WithMetrics records every decision.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gatekeeper) { g.metrics = m }
}

// WithMaxTokenAge rejects tokens whose iat is older than age. Zero leaves the
// token's own expiry as the only bound.
func WithMaxTokenAge(age time.Duration) Option {
	return func(g *Gatekeeper) { g.maxTokenAge = age }
}

// New builds a gatekeeper. The secret is copied once and never reloaded.
func New(secret string, prefixes []string, cookies auth.CookieJar, deny auth.DenyPolicy, logger *zap.Logger, opts ...Option) *Gatekeeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gatekeeper{
		secret:   []byte(secret),
		prefixes: append([]string(nil), prefixes...),
		cookies:  cookies,
		deny:     deny,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Protects reports whether path falls under a protected prefix.
func (g *Gatekeeper) Protects(path string) bool {
	for _, prefix := range g.prefixes {
		if config.PathHasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Evaluate runs the state machine for one token. It is pure apart from
// reading the clock.
func (g *Gatekeeper) Evaluate(token string) Decision {
	if token == "" {
		return Decision{State: NoToken, Reason: auth.ErrMissingToken}
	}

	d := Decision{State: TokenPresent}
	now := g.now()
	claims, err := auth.VerifyToken(token, g.secret, now)
	if err != nil {
		d.State, d.Reason = Rejected, err
		return d
	}
	if g.maxTokenAge > 0 {
		issued := claims.IssuedAtTime()
		if issued.IsZero() || now.Sub(issued) > g.maxTokenAge {
			d.State, d.Reason = Rejected, ErrTokenTooOld
			return d
		}
	}

	d.State, d.Claims = Verified, claims
	return d
}

// Handler returns fiber middleware enforcing the gatekeeper on protected
// prefixes. Other paths pass through untouched.
func (g *Gatekeeper) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !g.Protects(c.Path()) {
			return c.Next()
		}

		d := g.Evaluate(g.cookies.Token(c))
		g.metrics.RecordEdgeDecision(d.State.String(), reasonCode(d.Reason))

		switch d.State {
		case Verified:
			c.Locals(claimsKey, d.Claims)
			return c.Next()
		case Rejected:
			g.logger.Debug("edge rejected token",
				zap.String("path", c.Path()),
				zap.String("reason", reasonCode(d.Reason)))
			g.cookies.Clear(c)
		}
		return g.deny.Deny(c)
	}
}

// ClaimsFromContext returns the claims the gatekeeper verified.
func ClaimsFromContext(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals(claimsKey).(*auth.Claims)
	return claims, ok
}

func reasonCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, auth.ErrMissingToken):
		return "missing_token"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, auth.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenTooOld):
		return "token_too_old"
	default:
		return "malformed_token"
	}
}
