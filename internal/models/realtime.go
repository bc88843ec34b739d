package models

import "time"

// Frame types sent by clients over the chat WebSocket.
const (
	FrameMessageSend = "message.send"
	FrameReadSet     = "read.set"
	FrameTypingSet   = "typing.set"
	FramePing        = "ping"
)

// Frame types sent by the server.
const (
	FrameMessageCreated      = "message.created"
	FrameMessageRead         = "message.read"
	FrameConversationTyping  = "conversation.typing"
	FrameConversationBlocked = "conversation.blocked"
	FramePong                = "pong"
	FrameError               = "error"
)

// ClientFrame is the single inbound envelope; Type discriminates which of
// the optional fields are meaningful.
type ClientFrame struct {
	Type           string `json:"type"`
	ConversationID int64  `json:"conversation_id,omitempty"`
	Text           string `json:"text,omitempty"`
	UpToMessageID  int64  `json:"up_to_message_id,omitempty"`
	State          string `json:"state,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// MessageView is the wire shape of a message inside server frames and HTTP
// responses.
type MessageView struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	SenderID       int64      `json:"sender_id"`
	Content        string     `json:"content"`
	ContentType    string     `json:"content_type"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

// View converts a stored message to its wire shape. Retracted messages keep
// their slot but lose their content.
func (m *Message) View() MessageView {
	v := MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		ContentType:    m.ContentType,
		CreatedAt:      m.CreatedAt,
		ReadAt:         m.ReadAt,
	}
	if m.IsRetracted {
		v.Content = ""
		v.ContentType = ContentSystem
	}
	return v
}

// MessageCreatedFrame mirrors a new message to recipient sessions and the
// sender's other devices.
type MessageCreatedFrame struct {
	Type           string      `json:"type"`
	ConversationID int64       `json:"conversation_id"`
	Message        MessageView `json:"message"`
}

// MessageReadFrame tells the counterparty how far a user has read.
type MessageReadFrame struct {
	Type           string `json:"type"`
	ConversationID int64  `json:"conversation_id"`
	UserID         int64  `json:"user_id"`
	UpToMessageID  int64  `json:"up_to_message_id"`
}

// TypingFrame carries a typing indicator, state "on" or "off".
type TypingFrame struct {
	Type           string `json:"type"`
	ConversationID int64  `json:"conversation_id"`
	UserID         int64  `json:"user_id"`
	State          string `json:"state"`
}

// BlockedFrame notifies both sides that a conversation was frozen.
type BlockedFrame struct {
	Type           string `json:"type"`
	ConversationID int64  `json:"conversation_id"`
	ByUserID       int64  `json:"by_user_id"`
}

// ErrorFrame reports a failed inbound frame without closing the session.
type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongFrame answers a client ping.
type PongFrame struct {
	Type string `json:"type"`
}
