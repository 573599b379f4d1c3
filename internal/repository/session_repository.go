package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
)

// CreateSessionParams describes a new login. ID is generated when empty.
type CreateSessionParams struct {
	ID        string
	UserID    string
	Token     string
	TTL       time.Duration
	IPAddress string
	UserAgent string
}

// SessionRepository persists one record per active login.
type SessionRepository interface {
	Create(ctx context.Context, params CreateSessionParams) (*domain.Session, error)
	FindByToken(ctx context.Context, token string) (*domain.Session, error)
	FindByID(ctx context.Context, id string) (*domain.Session, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Session, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type sessionRepository struct {
	db  DBTX
	now func() time.Time
}

// NewSessionRepository returns a Postgres-backed session store.
func NewSessionRepository(db DBTX, now func() time.Time) SessionRepository {
	if now == nil {
		now = time.Now
	}
	return &sessionRepository{db: db, now: now}
}

const sessionColumns = `id, user_id, token, ip_address, user_agent, created_at, expires_at`

func (r *sessionRepository) Create(ctx context.Context, params CreateSessionParams) (*domain.Session, error) {
	const query = `
        INSERT INTO sessions (` + sessionColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if params.ID == "" {
		params.ID = uuid.NewString()
	}
	now := r.now().UTC()
	session := &domain.Session{
		ID:        params.ID,
		UserID:    params.UserID,
		Token:     params.Token,
		IPAddress: params.IPAddress,
		UserAgent: params.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(params.TTL),
	}

	if _, err := r.db.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		session.IPAddress,
		session.UserAgent,
		session.CreatedAt,
		session.ExpiresAt,
	); err != nil {
		return nil, storeError("create session", err)
	}
	return session, nil
}

func (r *sessionRepository) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE token=$1`
	return r.findOne(ctx, query, token)
}

func (r *sessionRepository) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id=$1`
	return r.findOne(ctx, query, id)
}

func (r *sessionRepository) findOne(ctx context.Context, query, arg string) (*domain.Session, error) {
	var s domain.Session
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&s.ID,
		&s.UserID,
		&s.Token,
		&s.IPAddress,
		&s.UserAgent,
		&s.CreatedAt,
		&s.ExpiresAt,
	); err != nil {
		return nil, storeError("find session", err)
	}
	return &s, nil
}

func (r *sessionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	const query = `
        SELECT ` + sessionColumns + `
        FROM sessions
        WHERE user_id=$1 AND expires_at > $2
        ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID, r.now().UTC())
	if err != nil {
		return nil, storeError("list sessions", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.Token,
			&s.IPAddress,
			&s.UserAgent,
			&s.CreatedAt,
			&s.ExpiresAt,
		); err != nil {
			return nil, storeError("scan session", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list sessions", err)
	}
	return sessions, nil
}

func (r *sessionRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id=$1`, id)
	return storeError("delete session", err)
}

func (r *sessionRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE token=$1`, token)
	return storeError("delete session", err)
}

func (r *sessionRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE user_id=$1`, userID)
	if err != nil {
		return 0, storeError("delete user sessions", err)
	}
	return cmd.RowsAffected(), nil
}

// DeleteExpired is idempotent and safe to run alongside live traffic.
func (r *sessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, r.now().UTC())
	if err != nil {
		return 0, storeError("delete expired sessions", err)
	}
	return cmd.RowsAffected(), nil
}
