package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
)

var sessionRowColumns = []string{"id", "user_id", "token", "ip_address", "user_agent", "created_at", "expires_at"}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSessionRepository_CreateThenFindByToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock := newMock(t)
	repo := NewSessionRepository(mock, fixedClock(now))

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("s-1", "u-1", "tok", "10.0.0.1", "curl", now, now.Add(time.Hour)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := repo.Create(ctx, CreateSessionParams{
		ID:        "s-1",
		UserID:    "u-1",
		Token:     "tok",
		TTL:       time.Hour,
		IPAddress: "10.0.0.1",
		UserAgent: "curl",
	})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), created.ExpiresAt)

	mock.ExpectQuery("FROM sessions WHERE token").
		WithArgs("tok").
		WillReturnRows(mock.NewRows(sessionRowColumns).
			AddRow(created.ID, created.UserID, created.Token, created.IPAddress, created.UserAgent, created.CreatedAt, created.ExpiresAt))

	found, err := repo.FindByToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, created, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_CreateGeneratesID(t *testing.T) {
	mock := newMock(t)
	repo := NewSessionRepository(mock, nil)

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(pgxmock.AnyArg(), "u-1", "tok", "", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	session, err := repo.Create(context.Background(), CreateSessionParams{UserID: "u-1", Token: "tok", TTL: time.Minute})
	require.NoError(t, err)
	assert.Len(t, session.ID, 36)
}

func TestSessionRepository_FindMisses(t *testing.T) {
	mock := newMock(t)
	repo := NewSessionRepository(mock, nil)

	mock.ExpectQuery("FROM sessions WHERE id").
		WithArgs("s-404").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("FROM sessions WHERE token").
		WithArgs("tok").
		WillReturnError(errors.New("conn reset"))

	_, err := repo.FindByID(context.Background(), "s-404")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.FindByToken(context.Background(), "tok")
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestSessionRepository_ListByUser(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock := newMock(t)
	repo := NewSessionRepository(mock, fixedClock(now))

	mock.ExpectQuery("FROM sessions").
		WithArgs("u-1", now).
		WillReturnRows(mock.NewRows(sessionRowColumns).
			AddRow("s-2", "u-1", "t2", "", "", now, now.Add(time.Hour)).
			AddRow("s-1", "u-1", "t1", "", "", now.Add(-time.Hour), now.Add(time.Minute)))

	sessions, err := repo.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s-2", sessions[0].ID)
}

func TestSessionRepository_DeleteByUserTwice(t *testing.T) {
	mock := newMock(t)
	repo := NewSessionRepository(mock, nil)

	mock.ExpectExec("DELETE FROM sessions WHERE user_id").
		WithArgs("u-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec("DELETE FROM sessions WHERE user_id").
		WithArgs("u-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	n, err := repo.DeleteByUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = repo.DeleteByUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock := newMock(t)
	repo := NewSessionRepository(mock, fixedClock(now))

	mock.ExpectExec("DELETE FROM sessions WHERE expires_at").
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectExec("DELETE FROM sessions WHERE expires_at").
		WithArgs(now).
		WillReturnError(errors.New("timeout"))

	n, err := repo.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	_, err = repo.DeleteExpired(context.Background())
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestPasswordResetRepository_MarkUsedOnce(t *testing.T) {
	mock := newMock(t)
	repo := NewPasswordResetRepository(mock)

	mock.ExpectExec("UPDATE password_reset_tokens").
		WithArgs("r-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE password_reset_tokens").
		WithArgs("r-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.MarkUsed(context.Background(), "r-1"))
	require.ErrorIs(t, repo.MarkUsed(context.Background(), "r-1"), domain.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_GetByToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock := newMock(t)
	repo := NewPasswordResetRepository(mock)

	mock.ExpectQuery("FROM password_reset_tokens WHERE token").
		WithArgs("reset").
		WillReturnRows(mock.NewRows([]string{"id", "user_id", "token", "expires_at", "used_at", "created_at"}).
			AddRow("r-1", "u-1", "reset", now.Add(time.Hour), nil, now))

	token, err := repo.GetByToken(context.Background(), "reset")
	require.NoError(t, err)
	assert.True(t, token.Usable(now))
}
