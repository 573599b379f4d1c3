package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered         EventType = "user_registered"
	EventLoginSucceeded         EventType = "login_succeeded"
	EventLoginFailed            EventType = "login_failed"
	EventSessionRevoked         EventType = "session_revoked"
	EventSessionsRevokedAll     EventType = "sessions_revoked_all"
	EventPasswordChanged        EventType = "password_changed"
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventRoleGranted            EventType = "role_granted"
)

// Event represents an auth event emitted by services. Payloads never carry
// passwords, hashes or session tokens.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// New builds an event stamped with a fresh id.
func New(eventType EventType, userID string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}

// LoginPayload describes a login attempt.
type LoginPayload struct {
	SessionID string `json:"session_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// LoginFailedPayload records why credentials were refused. Email is kept for
// audit; the response to the caller stays generic.
type LoginFailedPayload struct {
	Email     string `json:"email"`
	IPAddress string `json:"ip_address,omitempty"`
}

// SessionRevokedPayload payload.
type SessionRevokedPayload struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// SessionsRevokedAllPayload payload.
type SessionsRevokedAllPayload struct {
	Count  int64  `json:"count"`
	Reason string `json:"reason"`
}

// PasswordResetRequestedPayload carries what the notifier needs to send the link.
type PasswordResetRequestedPayload struct {
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RoleGrantedPayload payload.
type RoleGrantedPayload struct {
	Role      string `json:"role"`
	GrantedBy string `json:"granted_by,omitempty"`
}
