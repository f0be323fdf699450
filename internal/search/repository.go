// repository.go

package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/communityshare/server/internal/core"
)

type Repository interface {
	Create(ctx context.Context, search *Search) error
	GetByID(ctx context.Context, id int64) (*Search, error)
	Update(ctx context.Context, search *Search) error
	List(ctx context.Context, params ListParams) ([]*Search, error)
	CountByRole(ctx context.Context, userID int64, role string) (int, error)
}

type ListParams struct {
	SearcherUserID int64
	SearcherRole   string
	TargetRole     string
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, search *Search) error {
	query := `
		INSERT INTO searches (searcher_user_id, searcher_role, target_role, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, active, date_created`

	err := r.db.GetContext(ctx, search, query,
		search.SearcherUserID,
		search.SearcherRole,
		search.TargetRole,
		search.Description,
	)
	if err != nil {
		return fmt.Errorf("create search: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Search, error) {
	query := `
		SELECT id, searcher_user_id, searcher_role, target_role,
		       description, active, date_created
		FROM searches
		WHERE id = $1`

	var search Search
	err := r.db.GetContext(ctx, &search, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get search: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get search: %w", err)
	}

	return &search, nil
}

func (r *repository) Update(ctx context.Context, search *Search) error {
	query := `
		UPDATE searches
		SET searcher_role = $2, target_role = $3, description = $4, active = $5
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		search.ID,
		search.SearcherRole,
		search.TargetRole,
		search.Description,
		search.Active,
	)
	if err != nil {
		return fmt.Errorf("update search: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update search: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update search: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]*Search, error) {
	conditions := []string{"active"}
	var args []any

	if params.SearcherUserID != 0 {
		args = append(args, params.SearcherUserID)
		conditions = append(conditions,
			fmt.Sprintf("searcher_user_id = $%d", len(args)))
	}

	if params.SearcherRole != "" {
		args = append(args, params.SearcherRole)
		conditions = append(conditions,
			fmt.Sprintf("searcher_role = $%d", len(args)))
	}

	if params.TargetRole != "" {
		args = append(args, params.TargetRole)
		conditions = append(conditions,
			fmt.Sprintf("target_role = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT id, searcher_user_id, searcher_role, target_role,
		       description, active, date_created
		FROM searches
		WHERE %s
		ORDER BY date_created DESC`,
		strings.Join(conditions, " AND "))

	var searches []*Search
	if err := r.db.SelectContext(ctx, &searches, query, args...); err != nil {
		return nil, fmt.Errorf("list searches: %w", err)
	}

	return searches, nil
}

func (r *repository) CountByRole(
	ctx context.Context,
	userID int64,
	role string,
) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM searches
		WHERE searcher_user_id = $1 AND searcher_role = $2 AND active`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, role); err != nil {
		return 0, fmt.Errorf("count searches: %w", err)
	}

	return count, nil
}
