package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/auth"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/events"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/repository"
)

// AuthorizationService resolves and grants roles.
type AuthorizationService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthorizationService builds the service.
func NewAuthorizationService(users repository.UserRepository, dispatcher events.Dispatcher, logger *zap.Logger) *AuthorizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthorizationService{users: users, dispatcher: dispatcher, logger: logger, now: time.Now}
}

// RolesOf returns the current role set of the user.
func (s *AuthorizationService) RolesOf(ctx context.Context, userID string) (domain.RoleSet, error) {
	return s.users.ListRoles(ctx, userID)
}

// Authorize fails with auth.ErrForbidden unless the user currently holds one
// of the allowed roles.
func (s *AuthorizationService) Authorize(ctx context.Context, userID string, allowed ...domain.RoleName) error {
	roles, err := s.RolesOf(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.HasAnyRole(roles, allowed...) {
		return auth.ErrForbidden
	}
	return nil
}

// Grant adds role to the user. Granting a role already held is a no-op.
func (s *AuthorizationService) Grant(ctx context.Context, userID string, role domain.RoleName) error {
	return s.grant(ctx, "", userID, role)
}

// GrantAs grants on behalf of actor, who must be an administrator.
func (s *AuthorizationService) GrantAs(ctx context.Context, actor *auth.Principal, userID string, role domain.RoleName) error {
	if actor == nil || !auth.IsAdmin(actor.Roles) {
		return auth.ErrForbidden
	}
	return s.grant(ctx, actor.UserID(), userID, role)
}

func (s *AuthorizationService) grant(ctx context.Context, actorID, userID string, role domain.RoleName) error {
	role, err := domain.ParseRoleName(string(role))
	if err != nil {
		return err
	}
	if err := s.users.AddRole(ctx, userID, role); err != nil {
		return err
	}
	if s.dispatcher != nil {
		event := events.New(events.EventRoleGranted, userID, s.now(), events.RoleGrantedPayload{
			Role:      string(role),
			GrantedBy: actorID,
		})
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
		}
	}
	return nil
}
