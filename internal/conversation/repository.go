// repository.go

package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/communityshare/server/internal/core"
)

type Repository interface {
	Create(ctx context.Context, conv *Conversation) error
	GetByID(ctx context.Context, id int64) (*Conversation, error)
	Update(ctx context.Context, conv *Conversation) error
	List(ctx context.Context, params ListParams) ([]*Conversation, error)
}

type ListParams struct {
	// Restrict to conversations involving this user that contain
	// unviewed messages sent by the other party.
	UnviewedForUserID int64
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, conv *Conversation) error {
	query := `
		INSERT INTO conversations (title, search_id, usera_id, userb_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, active, date_created`

	err := r.db.GetContext(ctx, conv, query,
		conv.Title,
		conv.SearchID,
		conv.UserAID,
		conv.UserBID,
	)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id int64,
) (*Conversation, error) {
	query := `
		SELECT id, title, search_id, usera_id, userb_id, active, date_created
		FROM conversations
		WHERE id = $1`

	var conv Conversation
	err := r.db.GetContext(ctx, &conv, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get conversation: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	return &conv, nil
}

func (r *repository) Update(ctx context.Context, conv *Conversation) error {
	query := `
		UPDATE conversations
		SET title = $2, active = $3
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		conv.ID,
		conv.Title,
		conv.Active,
	)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update conversation: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]*Conversation, error) {
	query := `
		SELECT id, title, search_id, usera_id, userb_id, active, date_created
		FROM conversations
		WHERE active`
	var args []any

	if params.UnviewedForUserID != 0 {
		args = append(args, params.UnviewedForUserID)
		query += `
		AND (usera_id = $1 OR userb_id = $1)
		AND EXISTS (
			SELECT 1 FROM messages m
			WHERE m.conversation_id = conversations.id
			  AND m.active
			  AND NOT m.viewed
			  AND m.sender_user_id <> $1
		)`
	}

	query += `
		ORDER BY date_created DESC`

	var conversations []*Conversation
	if err := r.db.SelectContext(ctx, &conversations, query, args...); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	return conversations, nil
}
