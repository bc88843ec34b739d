package models

import "time"

// Event kinds carried on the notification queue.
const (
	EventMatchCreated = "discovery.match.created"
	EventMessageSent  = "chat.message.sent"
)

// Event is the payload handed to the Notification Relay. ID doubles as the
// per-event dedup key; the relay drops a redelivery it has already pushed.
type Event struct {
	ID                  string    `json:"id"`
	Kind                string    `json:"kind"`
	RecipientUserID     int64     `json:"recipient_user_id"`
	RecipientTelegramID int64     `json:"recipient_telegram_id"`
	ActorUserID         int64     `json:"actor_user_id,omitempty"`
	ActorName           string    `json:"actor_name,omitempty"`
	MatchID             int64     `json:"match_id,omitempty"`
	ConversationID      int64     `json:"conversation_id,omitempty"`
	MessageID           int64     `json:"message_id,omitempty"`
	Preview             string    `json:"preview,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}
