package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
)

// memSessions is an in-memory SessionRepository that counts reads.
type memSessions struct {
	mu       sync.Mutex
	byID     map[string]domain.Session
	now      func() time.Time
	reads    int
	nextID   int
	failNext error
}

func newMemSessions(now func() time.Time) *memSessions {
	return &memSessions{byID: map[string]domain.Session{}, now: now}
}

func (m *memSessions) Create(_ context.Context, p CreateSessionParams) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		m.nextID++
		p.ID = fmt.Sprintf("s-%d", m.nextID)
	}
	s := domain.Session{ID: p.ID, UserID: p.UserID, Token: p.Token, CreatedAt: m.now(), ExpiresAt: m.now().Add(p.TTL)}
	m.byID[s.ID] = s
	return &s, nil
}

func (m *memSessions) FindByToken(_ context.Context, token string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.failNext != nil {
		return nil, m.failNext
	}
	for _, s := range m.byID {
		if s.Token == token {
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSessions) FindByID(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if s, ok := m.byID[id]; ok {
		return &s, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memSessions) ListByUser(_ context.Context, userID string) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Session
	for _, s := range m.byID {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSessions) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memSessions) DeleteByToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.byID {
		if s.Token == token {
			delete(m.byID, id)
		}
	}
	return nil
}

func (m *memSessions) DeleteByUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.byID {
		if s.UserID == userID {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.byID {
		if s.Expired(m.now()) {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

func newCacheFixture(t *testing.T, ttl time.Duration) (*CachedSessionRepository, *memSessions, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Now().UTC().Truncate(time.Second)
	backing := newMemSessions(func() time.Time { return now })
	cache := NewCachedSessionRepository(backing, client, ttl, nil)
	cache.now = func() time.Time { return now }
	return cache, backing, srv
}

func TestCachedSessionRepository_ReadThrough(t *testing.T) {
	ctx := context.Background()
	cache, backing, srv := newCacheFixture(t, time.Minute)

	created, err := cache.Create(ctx, CreateSessionParams{ID: "s-1", UserID: "u-1", Token: "tok-1", TTL: time.Hour})
	require.NoError(t, err)
	assert.True(t, srv.Exists(tokenKey("tok-1")))
	assert.True(t, srv.Exists(idKey("s-1")))

	found, err := cache.FindByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, 0, backing.reads)

	byID, err := cache.FindByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", byID.Token)
	assert.Equal(t, 0, backing.reads)

	srv.FastForward(2 * time.Minute)
	_, err = cache.FindByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, 1, backing.reads)
}

func TestCachedSessionRepository_EntryTTLCappedBySessionExpiry(t *testing.T) {
	cache, _, srv := newCacheFixture(t, time.Hour)

	_, err := cache.Create(context.Background(), CreateSessionParams{ID: "s-1", UserID: "u-1", Token: "tok-1", TTL: 10 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, srv.TTL(tokenKey("tok-1")))
}

func TestCachedSessionRepository_DeleteByUserEvictsEverything(t *testing.T) {
	ctx := context.Background()
	cache, backing, srv := newCacheFixture(t, time.Minute)

	for _, p := range []CreateSessionParams{
		{ID: "s-1", UserID: "u-1", Token: "tok-1", TTL: time.Hour},
		{ID: "s-2", UserID: "u-1", Token: "tok-2", TTL: time.Hour},
		{ID: "s-3", UserID: "u-2", Token: "tok-3", TTL: time.Hour},
	} {
		_, err := cache.Create(ctx, p)
		require.NoError(t, err)
	}

	n, err := cache.DeleteByUser(ctx, "u-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	assert.False(t, srv.Exists(tokenKey("tok-1")))
	assert.False(t, srv.Exists(idKey("s-2")))
	assert.False(t, srv.Exists(userKey("u-1")))
	assert.True(t, srv.Exists(tokenKey("tok-3")))

	_, err = cache.FindByToken(ctx, "tok-1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	n, err = cache.DeleteByUser(ctx, "u-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
	assert.Len(t, backing.byID, 1)
}

func TestCachedSessionRepository_DeleteByTokenEvictsBothKeys(t *testing.T) {
	ctx := context.Background()
	cache, _, srv := newCacheFixture(t, time.Minute)

	_, err := cache.Create(ctx, CreateSessionParams{ID: "s-1", UserID: "u-1", Token: "tok-1", TTL: time.Hour})
	require.NoError(t, err)

	require.NoError(t, cache.DeleteByToken(ctx, "tok-1"))
	assert.False(t, srv.Exists(tokenKey("tok-1")))
	assert.False(t, srv.Exists(idKey("s-1")))

	_, err = cache.FindByID(ctx, "s-1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCachedSessionRepository_RedisDownFallsThrough(t *testing.T) {
	ctx := context.Background()
	cache, backing, srv := newCacheFixture(t, time.Minute)

	_, err := backing.Create(ctx, CreateSessionParams{ID: "s-1", UserID: "u-1", Token: "tok-1", TTL: time.Hour})
	require.NoError(t, err)
	srv.Close()

	found, err := cache.FindByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "s-1", found.ID)

	n, err := cache.DeleteByUser(ctx, "u-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCachedSessionRepository_StoreErrorsPropagate(t *testing.T) {
	cache, backing, _ := newCacheFixture(t, time.Minute)
	backing.failNext = domain.ErrStoreUnavailable

	_, err := cache.FindByToken(context.Background(), "tok-1")
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
