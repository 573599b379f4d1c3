package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/repository"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
	seq   int
	err   error

	updateErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]*domain.User{}}
}

func (f *fakeUsers) clone(u *domain.User) *domain.User {
	cp := *u
	cp.Roles = domain.NewRoleSet(u.Roles.Names()...)
	return &cp
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return domain.ErrConflict
		}
	}
	f.seq++
	user.ID = fmt.Sprintf("u-%d", f.seq)
	f.users[user.ID] = f.clone(user)
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return f.clone(u), nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			return f.clone(u), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsers) ListRoles(_ context.Context, userID string) (domain.RoleSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[userID]
	if !ok {
		return domain.NewRoleSet(), nil
	}
	return domain.NewRoleSet(u.Roles.Names()...), nil
}

func (f *fakeUsers) AddRole(_ context.Context, userID string, role domain.RoleName) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Roles.Add(role)
	return nil
}

type fakeSessions struct {
	mu    sync.Mutex
	rows  map[string]domain.Session
	now   func() time.Time
	err   error
	calls []string
}

func newFakeSessions(now func() time.Time) *fakeSessions {
	return &fakeSessions{rows: map[string]domain.Session{}, now: now}
}

func (f *fakeSessions) record(op string) error {
	f.calls = append(f.calls, op)
	return f.err
}

func (f *fakeSessions) Create(_ context.Context, p repository.CreateSessionParams) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create"); err != nil {
		return nil, err
	}
	now := f.now()
	s := domain.Session{
		ID:        p.ID,
		UserID:    p.UserID,
		Token:     p.Token,
		IPAddress: p.IPAddress,
		UserAgent: p.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(p.TTL),
	}
	f.rows[s.ID] = s
	return &s, nil
}

func (f *fakeSessions) FindByToken(_ context.Context, token string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("find_by_token"); err != nil {
		return nil, err
	}
	for _, s := range f.rows {
		if s.Token == token {
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSessions) FindByID(_ context.Context, id string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("find_by_id"); err != nil {
		return nil, err
	}
	s, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (f *fakeSessions) ListByUser(_ context.Context, userID string) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Session
	for _, s := range f.rows {
		if s.UserID == userID && !s.Expired(f.now()) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeSessions) DeleteByID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakeSessions) DeleteByToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.rows {
		if s.Token == token {
			delete(f.rows, id)
		}
	}
	return nil
}

func (f *fakeSessions) DeleteByUser(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.rows {
		if s.UserID == userID {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) DeleteExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.rows {
		if s.Expired(f.now()) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeResets struct {
	mu     sync.Mutex
	tokens map[string]*domain.PasswordResetToken
	seq    int
}

func newFakeResets() *fakeResets {
	return &fakeResets{tokens: map[string]*domain.PasswordResetToken{}}
}

func (f *fakeResets) Create(_ context.Context, t *domain.PasswordResetToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t.ID = fmt.Sprintf("r-%d", f.seq)
	cp := *t
	f.tokens[t.Token] = &cp
	return nil
}

func (f *fakeResets) GetByToken(_ context.Context, token string) (*domain.PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeResets) MarkUsed(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.ID == id {
			if t.UsedAt != nil {
				return domain.ErrConflict
			}
			now := time.Now()
			t.UsedAt = &now
			return nil
		}
	}
	return domain.ErrNotFound
}

func sessionParams(id, userID, token string, ttl time.Duration) repository.CreateSessionParams {
	return repository.CreateSessionParams{ID: id, UserID: userID, Token: token, TTL: ttl}
}
