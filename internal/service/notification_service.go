package service

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/config"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/events"
)

// NotificationService records auth events and stubs outbound email.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	outbox     func(to, subject, link string)
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	n := &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
	n.outbox = n.logEmail
	return n
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, t := range []events.EventType{
		events.EventUserRegistered,
		events.EventLoginSucceeded,
		events.EventLoginFailed,
		events.EventSessionRevoked,
		events.EventSessionsRevokedAll,
		events.EventRoleGranted,
	} {
		n.dispatcher.Subscribe(t, n.handleAudit)
	}
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordResetRequested)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.handlePasswordChanged)
}

func (n *NotificationService) handleAudit(_ context.Context, event events.Event) error {
	level := zap.InfoLevel
	if event.Type == events.EventLoginFailed {
		level = zap.WarnLevel
	}
	n.logger.Check(level, string(event.Type)).Write(
		zap.String("event_id", event.ID),
		zap.String("user_id", event.UserID),
		zap.Any("payload", event.Payload),
	)
	return nil
}

func (n *NotificationService) handlePasswordResetRequested(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if !ok {
		return nil
	}
	n.logger.Info(string(event.Type), zap.String("user_id", event.UserID), zap.Time("expires_at", payload.ExpiresAt))
	n.sendEmailNotificationStub(payload.Email, "Reset your password", n.resetLink(payload.Token))
	return nil
}

func (n *NotificationService) handlePasswordChanged(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("user_id", event.UserID))
	return nil
}

func (n *NotificationService) resetLink(token string) string {
	u, err := url.Parse(n.cfg.ResetURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func (n *NotificationService) sendEmailNotificationStub(to, subject, link string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || to == "" {
		return
	}
	n.outbox(to, subject, link)
}

// logEmail stands in for a mail transport. The link carries a live reset
// token, so only its length is logged.
func (n *NotificationService) logEmail(to, subject, link string) {
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("link_len", len(link)))
}
