package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
)

// UserRepository is the identity lookup the auth core depends on, plus the
// role assignments owned by each user.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	ListRoles(ctx context.Context, userID string) (domain.RoleSet, error)
	AddRole(ctx context.Context, userID string, role domain.RoleName) error
}

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const insertUser = `
        INSERT INTO users (email, name, password_hash)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`
	const insertRole = `
        INSERT INTO user_roles (user_id, role)
        VALUES ($1, $2)
        ON CONFLICT (user_id, role) DO NOTHING`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return storeError("begin create user", err)
	}
	if err := insertUserTx(ctx, tx, user, insertUser, insertRole); err != nil {
		_ = tx.Rollback(ctx)
		return storeError("create user", err)
	}
	return storeError("commit create user", tx.Commit(ctx))
}

func insertUserTx(ctx context.Context, tx pgx.Tx, user *domain.User, insertUser, insertRole string) error {
	if err := tx.QueryRow(ctx, insertUser,
		user.Email,
		user.Name,
		user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return err
	}
	for _, role := range user.Roles.Names() {
		if _, err := tx.Exec(ctx, insertRole, user.ID, string(role)); err != nil {
			return err
		}
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, email, name, password_hash, created_at, updated_at
        FROM users WHERE id=$1`
	return r.getOne(ctx, query, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, email, name, password_hash, created_at, updated_at
        FROM users WHERE email=$1`
	return r.getOne(ctx, query, email)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	var user domain.User
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, storeError("get user", err)
	}

	roles, err := r.ListRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	return &user, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `
        UPDATE users SET password_hash=$1, updated_at=NOW()
        WHERE id=$2`

	cmd, err := r.db.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return storeError("update password", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) ListRoles(ctx context.Context, userID string) (domain.RoleSet, error) {
	const query = `
        SELECT role FROM user_roles WHERE user_id=$1`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, storeError("list roles", err)
	}
	defer rows.Close()

	roles := domain.NewRoleSet()
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, storeError("scan role", err)
		}
		roles.Add(domain.RoleName(role))
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list roles", err)
	}
	return roles, nil
}

func (r *userRepository) AddRole(ctx context.Context, userID string, role domain.RoleName) error {
	const query = `
        INSERT INTO user_roles (user_id, role)
        SELECT id, $2 FROM users WHERE id=$1
        ON CONFLICT (user_id, role) DO NOTHING`

	cmd, err := r.db.Exec(ctx, query, userID, string(role))
	if err != nil {
		return storeError("add role", err)
	}
	if cmd.RowsAffected() == 0 {
		// Either the user is missing or the role was already held.
		if _, err := r.GetByID(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}
