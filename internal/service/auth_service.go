package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/auth"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/config"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/events"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/repository"
)

// AuthService coordinates registration, login, session checks and the
// password flows.
type AuthService struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	resets     repository.PasswordResetRepository
	tokens     *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time

	bcryptCost        int
	minPasswordLength int
	resetTTL          time.Duration

	dummyOnce sync.Once
	dummyHash string
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	SessionRepo       repository.SessionRepository
	PasswordResetRepo repository.PasswordResetRepository
	Tokens            *auth.TokenManager
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
	Clock             func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	s := &AuthService{
		users:             deps.UserRepo,
		sessions:          deps.SessionRepo,
		resets:            deps.PasswordResetRepo,
		tokens:            deps.Tokens,
		dispatcher:        deps.Dispatcher,
		logger:            deps.Logger,
		now:               deps.Clock,
		bcryptCost:        cfg.BcryptCost,
		minPasswordLength: cfg.MinPasswordLength,
		resetTTL:          cfg.PasswordResetTTL(),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.tokens == nil {
		s.tokens = auth.NewTokenManager(cfg.SessionSecret, cfg.TokenTTL(), auth.WithClock(s.now))
	}
	return s
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Company  bool
}

// LoginInput carries credentials and client metadata.
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	User      *domain.User
	Session   *domain.Session
	Token     string
	ExpiresAt time.Time
}

// Register creates a new account holding USER, plus COMPANY for business
// operators.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(in.Password, s.minPasswordLength); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	roles := domain.NewRoleSet(domain.RoleUser)
	if in.Company {
		roles.Add(domain.RoleCompany)
	}
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		user.Name = &name
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.publish(ctx, events.New(events.EventUserRegistered, user.ID, s.now(), nil))
	return user, nil
}

// Login checks credentials and opens a new session. Wrong password and unknown
// email are indistinguishable to the caller, and neither creates a session.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := strings.TrimSpace(in.Email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		// Spend the same bcrypt work as a real comparison.
		_, _ = auth.VerifyPassword(in.Password, s.dummyPasswordHash())
		s.loginFailed(ctx, "", email, in.IPAddress)
		return nil, auth.ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(in.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error("stored credential is unreadable", zap.String("user_id", user.ID), zap.Error(err))
		return nil, err
	}
	if !ok {
		s.loginFailed(ctx, user.ID, email, in.IPAddress)
		return nil, auth.ErrInvalidCredentials
	}

	sessionID := uuid.NewString()
	token, expiresAt, err := s.tokens.Sign(user.ID, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	session, err := s.sessions.Create(ctx, repository.CreateSessionParams{
		ID:        sessionID,
		UserID:    user.ID,
		Token:     token,
		TTL:       expiresAt.Sub(s.now()),
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.EventLoginSucceeded, user.ID, s.now(), events.LoginPayload{
		SessionID: session.ID,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
	}))

	return &LoginResult{
		User:      user,
		Session:   session,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Authenticate is the application-layer check: the token must verify AND a
// matching, unexpired session row must exist. The token string is the source
// of truth; the sid claim only narrows the lookup.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	session, err := s.lookupSession(ctx, claims, token)
	if err != nil {
		return nil, err
	}
	if session.UserID != claims.UserID() {
		return nil, auth.ErrSessionNotFound
	}
	if session.Expired(s.now()) {
		if err := s.sessions.DeleteByID(ctx, session.ID); err != nil {
			s.logger.Warn("lazy session cleanup failed", zap.String("session_id", session.ID), zap.Error(err))
		}
		return nil, auth.ErrSessionNotFound
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, err
	}

	return &auth.Principal{
		User:    user,
		Roles:   user.Roles,
		Session: session,
		Token:   token,
	}, nil
}

func (s *AuthService) lookupSession(ctx context.Context, claims *auth.Claims, token string) (*domain.Session, error) {
	if claims.SessionID != "" {
		session, err := s.sessions.FindByID(ctx, claims.SessionID)
		switch {
		case err == nil:
			if subtle.ConstantTimeCompare([]byte(session.Token), []byte(token)) == 1 {
				return session, nil
			}
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}

	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// Logout removes the session bound to token. It is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		return err
	}
	if claims, err := s.tokens.Verify(token); err == nil {
		s.publish(ctx, events.New(events.EventSessionRevoked, claims.UserID(), s.now(), events.SessionRevokedPayload{
			SessionID: claims.SessionID,
			Reason:    "logout",
		}))
	}
	return nil
}

// LogoutEverywhere revokes every session of the user.
func (s *AuthService) LogoutEverywhere(ctx context.Context, userID string) (int64, error) {
	return s.revokeAll(ctx, userID, "logout_everywhere")
}

// ListSessions returns the user's unexpired sessions, newest first.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.sessions.ListByUser(ctx, userID)
}

// RevokeSession deletes one of the user's own sessions. Sessions belonging to
// someone else are reported as not found.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.UserID != userID {
		return domain.ErrNotFound
	}
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return err
	}
	s.publish(ctx, events.New(events.EventSessionRevoked, userID, s.now(), events.SessionRevokedPayload{
		SessionID: sessionID,
		Reason:    "revoked",
	}))
	return nil
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every session of the user.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := auth.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return auth.ErrInvalidCredentials
	}
	if err := s.setPassword(ctx, user.ID, newPassword); err != nil {
		return err
	}
	if _, err := s.revokeAll(ctx, user.ID, "password_changed"); err != nil {
		return err
	}
	s.publish(ctx, events.New(events.EventPasswordChanged, user.ID, s.now(), nil))
	return nil
}

// RequestPasswordReset issues a single-use reset token. An unknown email is a
// silent no-op so the endpoint cannot be used to probe accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*domain.PasswordResetToken, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	token := &domain.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.EventPasswordResetRequested, user.ID, s.now(), events.PasswordResetRequestedPayload{
		Email:     user.Email,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	}))
	return token, nil
}

// ConfirmPasswordReset consumes the reset token, stores the new password and
// revokes every session of the user. The token is consumed first so that two
// concurrent confirmations cannot both succeed. The steps are not one
// transaction: a store failure after consumption leaves the token spent and the
// old password in place, and the caller must request a new reset.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if err := auth.ValidatePassword(newPassword, s.minPasswordLength); err != nil {
		return err
	}

	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if !token.Usable(s.now()) {
		return ErrInvalidResetToken
	}
	if err := s.resets.MarkUsed(ctx, token.ID); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return ErrInvalidResetToken
		}
		return err
	}

	if err := s.setPassword(ctx, token.UserID, newPassword); err != nil {
		return err
	}
	if _, err := s.revokeAll(ctx, token.UserID, "password_reset"); err != nil {
		return err
	}
	s.publish(ctx, events.New(events.EventPasswordChanged, token.UserID, s.now(), nil))
	return nil
}

// SweepExpiredSessions deletes expired session rows.
func (s *AuthService) SweepExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}

// TokenManager exposes the underlying token manager.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

func (s *AuthService) setPassword(ctx context.Context, userID, password string) error {
	if err := auth.ValidatePassword(password, s.minPasswordLength); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

func (s *AuthService) revokeAll(ctx context.Context, userID, reason string) (int64, error) {
	n, err := s.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, events.New(events.EventSessionsRevokedAll, userID, s.now(), events.SessionsRevokedAllPayload{
		Count:  n,
		Reason: reason,
	}))
	return n, nil
}

func (s *AuthService) loginFailed(ctx context.Context, userID, email, ip string) {
	s.publish(ctx, events.New(events.EventLoginFailed, userID, s.now(), events.LoginFailedPayload{
		Email:     email,
		IPAddress: ip,
	}))
}

func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := auth.HashPassword(uuid.NewString(), s.bcryptCost)
		if err != nil {
			s.logger.Error("dummy hash generation failed", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
