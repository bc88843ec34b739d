package models

import "time"

// Conversation is the message thread between a canonical user pair, normally
// backed by a Match. blocked_by, when set, freezes the thread for both sides.
type Conversation struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	User1ID   int64  `gorm:"not null;uniqueIndex:idx_conv_pair" json:"user1_id"`
	User2ID   int64  `gorm:"not null;uniqueIndex:idx_conv_pair" json:"user2_id"`
	MatchID   *int64 `gorm:"index" json:"match_id,omitempty"`
	BlockedBy *int64 `json:"blocked_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

// HasParticipant reports whether the user is one of the two parties.
func (c *Conversation) HasParticipant(userID int64) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// Counterparty returns the other participant.
func (c *Conversation) Counterparty(userID int64) int64 {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// Message content types.
const (
	ContentText   = "text"
	ContentSystem = "system"
)

// Message is an append-only row in a conversation. Deletion is logical:
// is_retracted flips, the row stays.
type Message struct {
	ID             int64  `gorm:"primaryKey" json:"id"`
	ConversationID int64  `gorm:"not null;index:idx_conv_msg,priority:1" json:"conversation_id"`
	SenderID       int64  `gorm:"not null" json:"sender_id"`
	Content        string `gorm:"not null" json:"content"`
	ContentType    string `gorm:"not null;default:text" json:"content_type"`
	IsRetracted    bool   `gorm:"not null;default:false" json:"is_retracted"`

	CreatedAt time.Time  `gorm:"index:idx_conv_msg,priority:2,sort:desc" json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// ReadCursor is the per-(conversation, user) high-water mark of read
// messages. It only moves forward.
type ReadCursor struct {
	ID                int64     `gorm:"primaryKey" json:"-"`
	ConversationID    int64     `gorm:"not null;uniqueIndex:idx_cursor" json:"conversation_id"`
	UserID            int64     `gorm:"not null;uniqueIndex:idx_cursor" json:"user_id"`
	LastReadMessageID int64     `gorm:"not null;default:0" json:"last_read_message_id"`
	LastReadAt        time.Time `json:"last_read_at"`
}
