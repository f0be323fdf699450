// association_repository.go

package institution

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/communityshare/server/internal/core"
)

type AssociationRepository interface {
	Create(ctx context.Context, assoc *Association) error
	GetByID(ctx context.Context, id int64) (*Association, error)
	Update(ctx context.Context, assoc *Association) error
	List(ctx context.Context, params AssociationListParams) ([]*Association, error)
}

type AssociationListParams struct {
	UserID int64
}

type associationRepository struct {
	db core.DBTX
}

func NewAssociationRepository(db core.DBTX) AssociationRepository {
	return &associationRepository{db: db}
}

func (r *associationRepository) Create(
	ctx context.Context,
	assoc *Association,
) error {
	query := `
		INSERT INTO institution_associations (user_id, institution_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, active, date_created`

	err := r.db.GetContext(ctx, assoc, query,
		assoc.UserID,
		assoc.InstitutionID,
		assoc.Role,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf(
				"user already associated with institution: %w",
				core.ErrDuplicateKey,
			)
		}
		return fmt.Errorf("create association: %w", err)
	}

	return nil
}

func (r *associationRepository) GetByID(
	ctx context.Context,
	id int64,
) (*Association, error) {
	query := `
		SELECT id, user_id, institution_id, role, active, date_created
		FROM institution_associations
		WHERE id = $1`

	var assoc Association
	err := r.db.GetContext(ctx, &assoc, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get association: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get association: %w", err)
	}

	return &assoc, nil
}

func (r *associationRepository) Update(
	ctx context.Context,
	assoc *Association,
) error {
	query := `
		UPDATE institution_associations
		SET institution_id = $2, role = $3, active = $4
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		assoc.ID,
		assoc.InstitutionID,
		assoc.Role,
		assoc.Active,
	)
	if err != nil {
		return fmt.Errorf("update association: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update association: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update association: %w", core.ErrNotFound)
	}

	return nil
}

func (r *associationRepository) List(
	ctx context.Context,
	params AssociationListParams,
) ([]*Association, error) {
	query := `
		SELECT id, user_id, institution_id, role, active, date_created
		FROM institution_associations
		WHERE active`
	var args []any

	if params.UserID != 0 {
		query += ` AND user_id = $1`
		args = append(args, params.UserID)
	}

	query += ` ORDER BY date_created DESC`

	var associations []*Association
	if err := r.db.SelectContext(ctx, &associations, query, args...); err != nil {
		return nil, fmt.Errorf("list associations: %w", err)
	}

	return associations, nil
}
