package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = 24 * time.Hour

// TokenManager signs and verifies compact HS256 session tokens. The secret is
// copied at construction and never changes for the life of the manager.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClock overrides the time source used for iat, exp and verification.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		tm.now = now
	}
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration, opts ...TokenOption) *TokenManager {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	tm := &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// Claims describes the token payload.
type Claims struct {
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject identity.
func (c *Claims) UserID() string {
	return c.Subject
}

// ExpiresAtTime returns the expiry instant in UTC, or zero when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time.UTC()
}

// IssuedAtTime returns the issue instant in UTC, or zero when absent.
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time.UTC()
}

// TTL returns the default token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Sign builds and signs a token for subjectID. sessionID may be empty.
// A non-positive ttl falls back to the manager default.
func (tm *TokenManager) Sign(subjectID, sessionID string, ttl time.Duration) (string, time.Time, error) {
	if subjectID == "" {
		return "", time.Time{}, errors.New("token subject is required")
	}
	if ttl <= 0 {
		ttl = tm.ttl
	}

	now := tm.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	// exp is encoded with second precision; report what the token carries.
	return tokenString, claims.ExpiresAt.Time, nil
}

// Verify validates the token against the manager's secret and clock.
func (tm *TokenManager) Verify(tokenString string) (*Claims, error) {
	return VerifyToken(tokenString, tm.secret, tm.now())
}

// VerifyToken checks signature, then expiry, using only the shared secret.
// The signature is checked first so a forged token never learns whether its
// expiry would have been accepted.
func VerifyToken(tokenString string, secret []byte, now time.Time) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMalformedToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, classifyTokenError(err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrMalformedToken
	}
}
