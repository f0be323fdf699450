// repository.go

package institution

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/communityshare/server/internal/core"
)

type Repository interface {
	Create(ctx context.Context, inst *Institution) error
	GetByID(ctx context.Context, id int64) (*Institution, error)
	GetByName(ctx context.Context, name string) (*Institution, error)
	Update(ctx context.Context, inst *Institution) error
	List(ctx context.Context) ([]*Institution, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, inst *Institution) error {
	query := `
		INSERT INTO institutions (name, institution_type, description)
		VALUES ($1, $2, $3)
		RETURNING id, active, date_created`

	err := r.db.GetContext(ctx, inst, query,
		inst.Name,
		inst.Type,
		inst.Description,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf(
				"institution name already exists: %w", core.ErrDuplicateKey,
			)
		}
		return fmt.Errorf("create institution: %w", err)
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id int64,
) (*Institution, error) {
	query := `
		SELECT id, name, institution_type, description, active, date_created
		FROM institutions
		WHERE id = $1`

	var inst Institution
	err := r.db.GetContext(ctx, &inst, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get institution: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get institution: %w", err)
	}

	return &inst, nil
}

func (r *repository) GetByName(
	ctx context.Context,
	name string,
) (*Institution, error) {
	query := `
		SELECT id, name, institution_type, description, active, date_created
		FROM institutions
		WHERE name = $1 AND active`

	var inst Institution
	err := r.db.GetContext(ctx, &inst, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get institution by name: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get institution by name: %w", err)
	}

	return &inst, nil
}

func (r *repository) Update(ctx context.Context, inst *Institution) error {
	query := `
		UPDATE institutions
		SET name = $2, institution_type = $3, description = $4, active = $5
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		inst.ID,
		inst.Name,
		inst.Type,
		inst.Description,
		inst.Active,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf(
				"institution name already exists: %w", core.ErrDuplicateKey,
			)
		}
		return fmt.Errorf("update institution: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update institution: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update institution: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(ctx context.Context) ([]*Institution, error) {
	query := `
		SELECT id, name, institution_type, description, active, date_created
		FROM institutions
		WHERE active
		ORDER BY name`

	var institutions []*Institution
	if err := r.db.SelectContext(ctx, &institutions, query); err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}

	return institutions, nil
}
