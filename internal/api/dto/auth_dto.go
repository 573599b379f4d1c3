package dto

import (
	"time"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
)

// PasswordChangeRequest payload.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// PasswordResetRequest payload.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest payload.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// GrantRoleRequest payload.
type GrantRoleRequest struct {
	Role string `json:"role"`
}

// SessionResponse describes one active login. The token itself is omitted.
type SessionResponse struct {
	ID        string    `json:"id"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Current   bool      `json:"current"`
}

// NewSessionResponses maps sessions, flagging the caller's own.
func NewSessionResponses(sessions []domain.Session, currentID string) []SessionResponse {
	out := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionResponse{
			ID:        s.ID,
			IPAddress: s.IPAddress,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			Current:   s.ID == currentID,
		})
	}
	return out
}
