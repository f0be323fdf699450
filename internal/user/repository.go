// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/communityshare/server/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	TouchLastActive(ctx context.Context, id int64) error
	List(ctx context.Context, params ListParams) ([]*User, error)
}

type ListParams struct {
	Email string
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (name, email, password_hash, is_administrator)
		VALUES ($1, $2, $3, $4)
		RETURNING id, active, date_created`

	err := r.db.GetContext(ctx, user, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Administrator,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("email already registered: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, is_administrator,
		       active, date_created, last_active
		FROM users
		WHERE id = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, is_administrator,
		       active, date_created, last_active
		FROM users
		WHERE email = $1 AND active`

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &user, nil
}

func (r *repository) Update(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET name = $2, password_hash = $3, is_administrator = $4, active = $5
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.PasswordHash,
		user.Administrator,
		user.Active,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id int64,
	passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2
		WHERE id = $1 AND active`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) TouchLastActive(ctx context.Context, id int64) error {
	query := `
		UPDATE users
		SET last_active = NOW()
		WHERE id = $1 AND active`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("touch last_active: %w", err)
	}
	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]*User, error) {
	query := `
		SELECT id, name, email, password_hash, is_administrator,
		       active, date_created, last_active
		FROM users
		WHERE active`
	var args []any

	if params.Email != "" {
		query += ` AND email = $1`
		args = append(args, params.Email)
	}

	query += ` ORDER BY date_created DESC`

	var users []*User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}
