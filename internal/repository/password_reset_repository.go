package repository

import (
	"context"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
)

// PasswordResetRepository manages password reset token persistence.
type PasswordResetRepository interface {
	Create(ctx context.Context, token *domain.PasswordResetToken) error
	GetByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id string) error
}

type passwordResetRepository struct {
	db DBTX
}

// NewPasswordResetRepository constructs repository.
func NewPasswordResetRepository(db DBTX) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

func (r *passwordResetRepository) Create(ctx context.Context, token *domain.PasswordResetToken) error {
	const query = `
        INSERT INTO password_reset_tokens (user_id, token, expires_at)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		token.UserID,
		token.Token,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
	return storeError("create reset token", err)
}

func (r *passwordResetRepository) GetByToken(ctx context.Context, tokenStr string) (*domain.PasswordResetToken, error) {
	const query = `
        SELECT id, user_id, token, expires_at, used_at, created_at
        FROM password_reset_tokens WHERE token=$1`
	var token domain.PasswordResetToken
	if err := r.db.QueryRow(ctx, query, tokenStr).Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.ExpiresAt,
		&token.UsedAt,
		&token.CreatedAt,
	); err != nil {
		return nil, storeError("get reset token", err)
	}
	return &token, nil
}

// MarkUsed consumes the token. A token that was already used yields
// domain.ErrConflict, so two concurrent confirmations cannot both succeed.
func (r *passwordResetRepository) MarkUsed(ctx context.Context, id string) error {
	const query = `
        UPDATE password_reset_tokens SET used_at=NOW()
        WHERE id=$1 AND used_at IS NULL`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return storeError("mark reset token used", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}
