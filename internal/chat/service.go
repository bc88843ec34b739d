// Package chat persists conversations and messages and mirrors them to live
// WebSocket sessions.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"sparkmatch/backend/internal/api"
	"sparkmatch/backend/internal/chathub"
	"sparkmatch/backend/internal/config"
	"sparkmatch/backend/internal/events"
	"sparkmatch/backend/internal/models"
	"sparkmatch/backend/internal/storage"
)

const defaultMessagePage = 50

// Service implements the chat operations shared by the HTTP handlers and the
// WebSocket frame dispatcher.
type Service struct {
	Storage storage.Storage
	Manager *chathub.Manager
	Bridge  *chathub.Bridge
	Events  events.Publisher
	Log     zerolog.Logger

	// sentKeys absorbs WebSocket send retries keyed by
	// (sender, idempotency_key); the cached view is re-acked instead of
	// inserting a second message.
	sentKeys *expirable.LRU[string, models.MessageView]
}

func NewService(s storage.Storage, manager *chathub.Manager, bridge *chathub.Bridge, pub events.Publisher, log zerolog.Logger) *Service {
	return &Service{
		Storage:  s,
		Manager:  manager,
		Bridge:   bridge,
		Events:   pub,
		Log:      log,
		sentKeys: expirable.NewLRU[string, models.MessageView](config.IdempotencyEntries, nil, config.IdempotencyWindow),
	}
}

// conversation loads the thread and checks the caller is a participant.
func (s *Service) conversation(id, userID int64) (*models.Conversation, error) {
	conv, err := s.Storage.GetConversation(id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, api.NotFound("conversation not found")
	}
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, api.Forbidden("not a participant")
	}
	return conv, nil
}

// ConversationView is one row of the conversation listing.
type ConversationView struct {
	ID             int64               `json:"id"`
	CounterpartyID int64               `json:"counterparty_id"`
	Counterparty   *ConversationPeer   `json:"counterparty,omitempty"`
	MatchID        *int64              `json:"match_id,omitempty"`
	BlockedBy      *int64              `json:"blocked_by,omitempty"`
	UnreadCount    int64               `json:"unread_count"`
	LastMessage    *models.MessageView `json:"last_message,omitempty"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// ConversationPeer is the counterparty summary the listing renders: enough
// to draw the row without a second profile fetch.
type ConversationPeer struct {
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// Conversations pages the user's threads, most recently active first.
func (s *Service) Conversations(userID int64, limit int, beforeUpdatedAt time.Time, beforeID int64) ([]ConversationView, error) {
	if limit <= 0 {
		limit = config.DefaultPageSize
	}
	if limit > config.MaxPageSize {
		limit = config.MaxPageSize
	}
	convs, err := s.Storage.ListConversations(userID, limit, beforeUpdatedAt, beforeID)
	if err != nil {
		return nil, err
	}

	out := make([]ConversationView, 0, len(convs))
	for i := range convs {
		conv := &convs[i]
		peerID := conv.Counterparty(userID)
		view := ConversationView{
			ID:             conv.ID,
			CounterpartyID: peerID,
			MatchID:        conv.MatchID,
			BlockedBy:      conv.BlockedBy,
			UpdatedAt:      conv.UpdatedAt,
		}
		if peer, err := s.profileFor(peerID); err == nil {
			view.Counterparty = &ConversationPeer{
				UserID:   peerID,
				Name:     peer.Name,
				PhotoURL: primaryPhotoURL(peer),
			}
		}
		if unread, err := s.Storage.UnreadCount(conv.ID, userID); err == nil {
			view.UnreadCount = unread
		}
		if msgs, err := s.Storage.ListMessages(conv.ID, 0, 1); err == nil && len(msgs) > 0 {
			mv := msgs[0].View()
			view.LastMessage = &mv
		}
		out = append(out, view)
	}
	return out, nil
}

// Messages pages a conversation's history backwards from beforeID, returned
// in ascending id order.
func (s *Service) Messages(userID, conversationID, beforeID int64, limit int) ([]models.MessageView, error) {
	if _, err := s.conversation(conversationID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > config.MaxPageSize {
		limit = defaultMessagePage
	}
	msgs, err := s.Storage.ListMessages(conversationID, beforeID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.MessageView, 0, len(msgs))
	for i := range msgs {
		out = append(out, msgs[i].View())
	}
	return out, nil
}

// Send persists a message and mirrors it to every live session of both
// participants. The sender's other devices receive it too.
func (s *Service) Send(ctx context.Context, senderID, conversationID int64, text string) (*models.MessageView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, api.Validation(map[string]string{"text": "must not be empty"})
	}
	if len(text) > config.MaxMessageBytes {
		return nil, api.Validation(map[string]string{"text": "too long"})
	}

	conv, err := s.conversation(conversationID, senderID)
	if err != nil {
		return nil, err
	}
	if conv.BlockedBy != nil {
		return nil, api.BlockedUser("conversation is blocked")
	}
	blocked, err := s.Storage.IsBlockedEither(conv.User1ID, conv.User2ID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, api.BlockedUser("conversation is blocked")
	}
	if conv.MatchID == nil {
		recipient, err := s.profileFor(conv.Counterparty(senderID))
		if err != nil {
			return nil, err
		}
		if recipient.AllowMessagesFrom != "anyone" {
			return nil, api.Forbidden("recipient only accepts messages from matches")
		}
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        text,
		ContentType:    models.ContentText,
	}
	if err := s.Storage.CreateMessage(msg); err != nil {
		return nil, err
	}

	view := msg.View()
	s.deliverMessage(ctx, conv, view)
	s.notifyRecipient(ctx, conv.Counterparty(senderID), msg)
	return &view, nil
}

// deliverMessage mirrors a message to every session of both participants.
// The originating session receives the frame too and treats it as the
// delivery ack.
func (s *Service) deliverMessage(ctx context.Context, conv *models.Conversation, view models.MessageView) {
	frame, err := json.Marshal(models.MessageCreatedFrame{
		Type:           models.FrameMessageCreated,
		ConversationID: conv.ID,
		Message:        view,
	})
	if err != nil {
		return
	}
	s.Bridge.Deliver(ctx, conv.User1ID, frame)
	s.Bridge.Deliver(ctx, conv.User2ID, frame)
}

// notifyRecipient queues a relay event when the recipient has no live
// session here. A session on a sibling instance may still see the frame;
// duplicate pushes are cheaper than missed ones.
func (s *Service) notifyRecipient(ctx context.Context, recipientID int64, msg *models.Message) {
	if s.Manager.Online(recipientID) {
		return
	}
	recipient, err := s.Storage.GetUserByID(recipientID)
	if err != nil {
		s.Log.Error().Err(err).Int64("user_id", recipientID).Msg("load recipient for message event")
		return
	}
	evt := models.Event{
		ID:                  ulid.Make().String(),
		Kind:                models.EventMessageSent,
		RecipientUserID:     recipient.ID,
		RecipientTelegramID: recipient.TelegramID,
		ActorUserID:         msg.SenderID,
		ActorName:           s.senderName(msg.SenderID),
		ConversationID:      msg.ConversationID,
		MessageID:           msg.ID,
		Preview:             preview(msg.Content),
		CreatedAt:           time.Now(),
	}
	if err := s.Events.Publish(ctx, evt); err != nil {
		s.Log.Error().Err(err).Str("event_id", evt.ID).Msg("publish message event")
	}
}

func (s *Service) profileFor(userID int64) (*models.Profile, error) {
	if p, ok := s.Storage.CachedProfile(userID); ok {
		return p, nil
	}
	p, err := s.Storage.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	s.Storage.StoreCachedProfile(p)
	return p, nil
}

func (s *Service) senderName(userID int64) string {
	p, err := s.profileFor(userID)
	if err != nil {
		return ""
	}
	return p.Name
}

func primaryPhotoURL(p *models.Profile) string {
	for _, photo := range p.Photos {
		if photo.IsPrimary && photo.Status == models.PhotoApproved {
			return photo.URL
		}
	}
	return ""
}

const previewRunes = 80

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewRunes {
		return content
	}
	return string(runes[:previewRunes]) + "…"
}

// MarkRead advances the reader's cursor and tells the counterparty how far.
// The cursor never moves backwards; the effective position is returned.
func (s *Service) MarkRead(ctx context.Context, userID, conversationID, upToMessageID int64) (int64, error) {
	conv, err := s.conversation(conversationID, userID)
	if err != nil {
		return 0, err
	}
	if upToMessageID > 0 {
		msg, err := s.Storage.GetMessage(upToMessageID)
		if errors.Is(err, storage.ErrNotFound) {
			return 0, api.NotFound("message not found")
		}
		if err != nil {
			return 0, err
		}
		if msg.ConversationID != conversationID {
			return 0, api.Validation(map[string]string{"up_to_message_id": "message is not in this conversation"})
		}
	}

	effective, err := s.Storage.AdvanceReadCursor(conversationID, userID, upToMessageID)
	if err != nil {
		return 0, err
	}

	frame, err := json.Marshal(models.MessageReadFrame{
		Type:           models.FrameMessageRead,
		ConversationID: conversationID,
		UserID:         userID,
		UpToMessageID:  effective,
	})
	if err == nil {
		s.Bridge.Deliver(ctx, conv.Counterparty(userID), frame)
	}
	return effective, nil
}

// Retract logically deletes the sender's own message inside the retraction
// window. Both sides get the updated, emptied view.
func (s *Service) Retract(ctx context.Context, userID, messageID int64) error {
	msg, err := s.Storage.GetMessage(messageID)
	if errors.Is(err, storage.ErrNotFound) {
		return api.NotFound("message not found")
	}
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return api.Forbidden("only the sender can retract a message")
	}
	if time.Since(msg.CreatedAt) > config.RetractionWindow {
		return api.Validation(map[string]string{"message_id": "retraction window has passed"})
	}

	conv, err := s.conversation(msg.ConversationID, userID)
	if err != nil {
		return err
	}
	if err := s.Storage.RetractMessage(messageID); err != nil {
		return err
	}
	msg.IsRetracted = true
	s.deliverMessage(ctx, conv, msg.View())
	return nil
}

// Typing forwards an ephemeral typing indicator; nothing is stored.
func (s *Service) Typing(ctx context.Context, userID, conversationID int64, state string) error {
	if state != "on" && state != "off" {
		return api.Validation(map[string]string{"state": `must be "on" or "off"`})
	}
	conv, err := s.conversation(conversationID, userID)
	if err != nil {
		return err
	}
	if conv.BlockedBy != nil {
		return api.BlockedUser("conversation is blocked")
	}
	frame, err := json.Marshal(models.TypingFrame{
		Type:           models.FrameConversationTyping,
		ConversationID: conversationID,
		UserID:         userID,
		State:          state,
	})
	if err != nil {
		return err
	}
	s.Bridge.Deliver(ctx, conv.Counterparty(userID), frame)
	return nil
}

// Block freezes the thread for both sides and records a moderation block
// against the counterparty.
func (s *Service) Block(ctx context.Context, userID, conversationID int64) error {
	conv, err := s.conversation(conversationID, userID)
	if err != nil {
		return err
	}
	if err := s.Storage.CreateBlock(userID, conv.Counterparty(userID)); err != nil {
		return err
	}
	if err := s.Storage.SetConversationBlocked(conversationID, userID); err != nil {
		return err
	}

	frame, err := json.Marshal(models.BlockedFrame{
		Type:           models.FrameConversationBlocked,
		ConversationID: conversationID,
		ByUserID:       userID,
	})
	if err == nil {
		s.Bridge.Deliver(ctx, conv.User1ID, frame)
		s.Bridge.Deliver(ctx, conv.User2ID, frame)
	}
	return nil
}

// Report files a moderation report against the counterparty.
func (s *Service) Report(userID, conversationID int64, category, reason string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return api.Validation(map[string]string{"category": "must not be empty"})
	}
	conv, err := s.conversation(conversationID, userID)
	if err != nil {
		return err
	}
	return s.Storage.CreateReport(&models.Report{
		ReporterID:     userID,
		ReportedID:     conv.Counterparty(userID),
		ConversationID: &conversationID,
		Category:       category,
		Reason:         reason,
		Status:         models.ReportOpen,
	})
}
