// resource.go

package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/communityshare/server/internal/core"
	"github.com/communityshare/server/internal/mail"
	"github.com/communityshare/server/internal/resource"
	"github.com/communityshare/server/internal/user"
)

// NewResource exposes conversations. Only participants (and
// administrators) see anything beyond an empty object; the admin view
// embeds both participants and the full message history.
func NewResource(
	repo Repository,
	messages MessageRepository,
	messageRes *resource.Resource[*Message],
	users user.Repository,
	userRes *resource.Resource[*user.User],
) *resource.Resource[*Conversation] {
	return resource.Build(resource.Resource[*Conversation]{
		Name:             "conversations",
		Mandatory:        []string{"title", "search_id", "userA_id", "userB_id"},
		Writeable:        []string{"title"},
		StandardReadable: []string{},
		AdminReadable: []string{
			"id", "title", "search_id", "userA_id", "userB_id",
			"date_created", "active", "messages", "userA", "userB",
		},
		StandardCanReadMany: true,

		New:     func() *Conversation { return &Conversation{} },
		Get:     repo.GetByID,
		List:    listFunc(repo),
		Insert:  repo.Create,
		Persist: repo.Update,

		HasAddRights: func(
			_ context.Context,
			data map[string]any,
			req *resource.Requester,
		) (bool, error) {
			if req.Administrator {
				return true, nil
			}
			userA, okA := data["userA_id"].(float64)
			userB, okB := data["userB_id"].(float64)
			return (okA && int64(userA) == req.ID) ||
				(okB && int64(userB) == req.ID), nil
		},
		HasAdminRights: conversationRights,
		// Non-participants get nothing at all, so listings do not leak
		// which conversations exist.
		HasStandardRights: conversationRights,

		Serializers: map[string]resource.SerializeFunc[*Conversation]{
			"messages": serializeMessages(messages, messageRes),
			"userA":    serializeParticipant(users, userRes, (*Conversation).userA),
			"userB":    serializeParticipant(users, userRes, (*Conversation).userB),
		},
	})
}

func (c *Conversation) userA() int64 { return c.UserAID }
func (c *Conversation) userB() int64 { return c.UserBID }

func conversationRights(c *Conversation, req *resource.Requester) bool {
	return req != nil && (req.Administrator || c.HasParticipant(req.ID))
}

func listFunc(
	repo Repository,
) func(context.Context, url.Values, *resource.Requester) ([]*Conversation, error) {
	return func(
		ctx context.Context,
		params url.Values,
		req *resource.Requester,
	) ([]*Conversation, error) {
		listParams := ListParams{}

		if raw := params.Get("user_id_with_unviewed_messages"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf(
					"user_id_with_unviewed_messages must be an integer: %w",
					core.ErrInvalidInput,
				)
			}
			// Users may only query their own unviewed conversations.
			if req != nil && !req.Administrator && id != req.ID {
				return nil, fmt.Errorf(
					"cannot query another user's conversations: %w",
					core.ErrForbidden,
				)
			}
			listParams.UnviewedForUserID = id
		}

		return repo.List(ctx, listParams)
	}
}

func serializeMessages(
	messages MessageRepository,
	messageRes *resource.Resource[*Message],
) resource.SerializeFunc[*Conversation] {
	return func(
		ctx context.Context,
		c *Conversation,
		req *resource.Requester,
	) (any, error) {
		msgs, err := messages.ListByConversation(ctx, c.ID)
		if err != nil {
			return nil, err
		}

		out := make([]map[string]any, 0, len(msgs))
		for _, msg := range msgs {
			serialized, err := messageRes.SerializeAdmin(ctx, msg, req)
			if err != nil {
				return nil, err
			}
			out = append(out, serialized)
		}
		return out, nil
	}
}

func serializeParticipant(
	users user.Repository,
	userRes *resource.Resource[*user.User],
	pick func(*Conversation) int64,
) resource.SerializeFunc[*Conversation] {
	return func(
		ctx context.Context,
		c *Conversation,
		req *resource.Requester,
	) (any, error) {
		u, err := users.GetByID(ctx, pick(c))
		if err != nil {
			return nil, err
		}
		return userRes.SerializeStandard(ctx, u, req)
	}
}

// NewMessageResource exposes messages. Sending notifies the receiver by
// email on a best-effort basis.
func NewMessageResource(
	repo MessageRepository,
	conversations Repository,
	users user.Repository,
	mailer mail.Mailer,
	logger *slog.Logger,
) *resource.Resource[*Message] {
	return resource.Build(resource.Resource[*Message]{
		Name:             "messages",
		Mandatory:        []string{"conversation_id", "sender_user_id", "content"},
		Writeable:        []string{"viewed"},
		StandardReadable: []string{},
		AdminReadable: []string{
			"id", "conversation_id", "sender_user_id", "content",
			"date_created", "viewed",
		},

		New:     func() *Message { return &Message{} },
		Get:     repo.GetByID,
		List:    messageListFunc(repo),
		Insert:  repo.Create,
		Persist: repo.Update,

		// Only a participant may send, and only as themself.
		HasAddRights: func(
			ctx context.Context,
			data map[string]any,
			req *resource.Requester,
		) (bool, error) {
			if req.Administrator {
				return true, nil
			}

			senderID, ok := data["sender_user_id"].(float64)
			if !ok || int64(senderID) != req.ID {
				return false, nil
			}

			conversationID, ok := data["conversation_id"].(float64)
			if !ok {
				return false, nil
			}

			conv, err := conversations.GetByID(ctx, int64(conversationID))
			if err != nil {
				return false, err
			}
			return conv.Active && conv.HasParticipant(req.ID), nil
		},
		HasAdminRights: func(m *Message, req *resource.Requester) bool {
			if req == nil {
				return false
			}
			return req.Administrator ||
				req.ID == m.SenderUserID ||
				req.ID == m.ConvUserAID ||
				req.ID == m.ConvUserBID
		},

		OnAdd: notifyReceiver(conversations, users, mailer, logger),
	})
}

func messageListFunc(
	repo MessageRepository,
) func(context.Context, url.Values, *resource.Requester) ([]*Message, error) {
	return func(
		ctx context.Context,
		params url.Values,
		_ *resource.Requester,
	) ([]*Message, error) {
		raw := params.Get("conversation_id")
		if raw == "" {
			return nil, fmt.Errorf(
				"conversation_id is required: %w", core.ErrInvalidInput,
			)
		}

		conversationID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf(
				"conversation_id must be an integer: %w", core.ErrInvalidInput,
			)
		}

		return repo.ListByConversation(ctx, conversationID)
	}
}

// notifyReceiver emails the other participant about the new message.
// Delivery failures are logged, never surfaced to the sender.
func notifyReceiver(
	conversations Repository,
	users user.Repository,
	mailer mail.Mailer,
	logger *slog.Logger,
) func(context.Context, *Message, *resource.Requester) error {
	return func(ctx context.Context, m *Message, _ *resource.Requester) error {
		conv, err := conversations.GetByID(ctx, m.ConversationID)
		if err != nil {
			return err
		}

		receiverID := conv.OtherParticipant(m.SenderUserID)
		if receiverID == 0 {
			return nil
		}

		receiver, err := users.GetByID(ctx, receiverID)
		if err != nil || !receiver.Active {
			return nil
		}

		sender, err := users.GetByID(ctx, m.SenderUserID)
		if err != nil {
			return nil
		}

		msg := mail.Message{
			To:      receiver.Email,
			Subject: fmt.Sprintf("New message in %q", conv.Title),
			Text: fmt.Sprintf(
				"%s sent you a message:\n\n%s", sender.Name, m.Content,
			),
		}
		if err := mailer.Send(ctx, msg); err != nil {
			logger.Warn("message notification failed",
				"message_id", m.ID,
				"receiver_id", receiverID,
				"error", err,
			)
		}

		return nil
	}
}
