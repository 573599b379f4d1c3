package dto

import (
	"time"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
)

// RegisterRequest payload for new users.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Company  bool   `json:"company"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of a user. The password hash never leaves
// the service.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.DisplayName(),
		Roles:     RoleNames(u.Roles),
		CreatedAt: u.CreatedAt,
	}
}

// RoleNames renders a role set in stable order.
func RoleNames(roles domain.RoleSet) []string {
	names := roles.Names()
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, string(name))
	}
	return out
}
