package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
)

const sessionCachePrefix = "session:"

// CachedSessionRepository is a read-through redis cache in front of a
// SessionRepository. Postgres stays authoritative: every cache failure is
// logged and the call falls through to the wrapped store.
type CachedSessionRepository struct {
	next   SessionRepository
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewCachedSessionRepository wraps next. Entries live for at most ttl and never
// beyond the session's own expiry.
func NewCachedSessionRepository(next SessionRepository, client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *CachedSessionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSessionRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return sessionCachePrefix + "tok:" + hex.EncodeToString(sum[:])
}

func idKey(id string) string {
	return sessionCachePrefix + "id:" + id
}

func userKey(userID string) string {
	return sessionCachePrefix + "user:" + userID
}

func (c *CachedSessionRepository) Create(ctx context.Context, params CreateSessionParams) (*domain.Session, error) {
	session, err := c.next.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	c.store(ctx, session)
	return session, nil
}

func (c *CachedSessionRepository) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	if session, ok := c.load(ctx, tokenKey(token)); ok {
		return session, nil
	}
	session, err := c.next.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	c.store(ctx, session)
	return session, nil
}

func (c *CachedSessionRepository) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	if session, ok := c.load(ctx, idKey(id)); ok {
		return session, nil
	}
	session, err := c.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, session)
	return session, nil
}

func (c *CachedSessionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	return c.next.ListByUser(ctx, userID)
}

func (c *CachedSessionRepository) DeleteByID(ctx context.Context, id string) error {
	cached, _ := c.load(ctx, idKey(id))
	if err := c.next.DeleteByID(ctx, id); err != nil {
		return err
	}
	keys := []string{idKey(id)}
	if cached != nil {
		keys = append(keys, tokenKey(cached.Token))
	}
	c.evict(ctx, keys...)
	return nil
}

func (c *CachedSessionRepository) DeleteByToken(ctx context.Context, token string) error {
	cached, _ := c.load(ctx, tokenKey(token))
	if err := c.next.DeleteByToken(ctx, token); err != nil {
		return err
	}
	keys := []string{tokenKey(token)}
	if cached != nil {
		keys = append(keys, idKey(cached.ID))
	}
	c.evict(ctx, keys...)
	return nil
}

func (c *CachedSessionRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	n, err := c.next.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	members, err := c.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		c.logger.Warn("session cache: list user keys failed", zap.String("user_id", userID), zap.Error(err))
		return n, nil
	}
	c.evict(ctx, append(members, userKey(userID))...)
	return n, nil
}

// DeleteExpired only touches Postgres; cached entries expire on their own.
func (c *CachedSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	return c.next.DeleteExpired(ctx)
}

func (c *CachedSessionRepository) load(ctx context.Context, key string) (*domain.Session, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("session cache: get failed", zap.Error(err))
		}
		return nil, false
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		c.logger.Warn("session cache: corrupt entry", zap.Error(err))
		return nil, false
	}
	if session.Expired(c.now()) {
		return nil, false
	}
	return &session, true
}

func (c *CachedSessionRepository) store(ctx context.Context, session *domain.Session) {
	ttl := c.ttl
	if remaining := session.ExpiresAt.Sub(c.now()); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return
	}

	tk, ik, uk := tokenKey(session.Token), idKey(session.ID), userKey(session.UserID)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tk, raw, ttl)
		pipe.Set(ctx, ik, raw, ttl)
		pipe.SAdd(ctx, uk, tk, ik)
		pipe.Expire(ctx, uk, c.ttl)
		return nil
	})
	if err != nil {
		c.logger.Warn("session cache: store failed", zap.String("session_id", session.ID), zap.Error(err))
	}
}

func (c *CachedSessionRepository) evict(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Error("session cache: eviction failed, entries linger until ttl",
			zap.Strings("keys", keys), zap.Error(err))
	}
}
