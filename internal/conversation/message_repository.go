// message_repository.go

package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/communityshare/server/internal/core"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *Message) error
	GetByID(ctx context.Context, id int64) (*Message, error)
	Update(ctx context.Context, msg *Message) error
	ListByConversation(ctx context.Context, conversationID int64) ([]*Message, error)
}

type messageRepository struct {
	db core.DBTX
}

func NewMessageRepository(db core.DBTX) MessageRepository {
	return &messageRepository{db: db}
}

const messageColumns = `
	m.id, m.conversation_id, m.sender_user_id, m.content,
	m.viewed, m.active, m.date_created,
	c.usera_id AS conv_usera_id, c.userb_id AS conv_userb_id`

func (r *messageRepository) Create(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO messages (conversation_id, sender_user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, viewed, active, date_created`

	err := r.db.GetContext(ctx, msg, query,
		msg.ConversationID,
		msg.SenderUserID,
		msg.Content,
	)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}

	return nil
}

func (r *messageRepository) GetByID(
	ctx context.Context,
	id int64,
) (*Message, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE m.id = $1`, messageColumns)

	var msg Message
	err := r.db.GetContext(ctx, &msg, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get message: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}

	return &msg, nil
}

func (r *messageRepository) Update(ctx context.Context, msg *Message) error {
	query := `
		UPDATE messages
		SET viewed = $2, active = $3
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		msg.ID,
		msg.Viewed,
		msg.Active,
	)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update message: %w", core.ErrNotFound)
	}

	return nil
}

func (r *messageRepository) ListByConversation(
	ctx context.Context,
	conversationID int64,
) ([]*Message, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE m.conversation_id = $1 AND m.active
		ORDER BY m.date_created`, messageColumns)

	var messages []*Message
	if err := r.db.SelectContext(ctx, &messages, query, conversationID); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return messages, nil
}
