// entity.go

package conversation

import "time"

// Conversation connects two users around a search posting.
type Conversation struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	SearchID    int64     `json:"search_id" db:"search_id"`
	UserAID     int64     `json:"userA_id" db:"usera_id"`
	UserBID     int64     `json:"userB_id" db:"userb_id"`
	Active      bool      `json:"active" db:"active"`
	DateCreated time.Time `json:"date_created" db:"date_created"`
}

func (c *Conversation) EntityID() int64 { return c.ID }
func (c *Conversation) IsActive() bool  { return c.Active }
func (c *Conversation) Deactivate()     { c.Active = false }

func (c *Conversation) HasParticipant(userID int64) bool {
	return userID == c.UserAID || userID == c.UserBID
}

// OtherParticipant returns the participant that is not userID, or 0
// when userID is not part of the conversation.
func (c *Conversation) OtherParticipant(userID int64) int64 {
	switch userID {
	case c.UserAID:
		return c.UserBID
	case c.UserBID:
		return c.UserAID
	default:
		return 0
	}
}

// Message belongs to a conversation. The Conv* fields carry the
// conversation's participants, join-loaded so rights checks need no
// second query.
type Message struct {
	ID             int64     `json:"id" db:"id"`
	ConversationID int64     `json:"conversation_id" db:"conversation_id"`
	SenderUserID   int64     `json:"sender_user_id" db:"sender_user_id"`
	Content        string    `json:"content" db:"content"`
	Viewed         bool      `json:"viewed" db:"viewed"`
	Active         bool      `json:"active" db:"active"`
	DateCreated    time.Time `json:"date_created" db:"date_created"`

	ConvUserAID int64 `json:"-" db:"conv_usera_id"`
	ConvUserBID int64 `json:"-" db:"conv_userb_id"`
}

func (m *Message) EntityID() int64 { return m.ID }
func (m *Message) IsActive() bool  { return m.Active }
func (m *Message) Deactivate()     { m.Active = false }

// ReceiverUserID is the participant the message was sent to.
func (m *Message) ReceiverUserID() int64 {
	if m.SenderUserID == m.ConvUserAID {
		return m.ConvUserBID
	}
	return m.ConvUserAID
}
