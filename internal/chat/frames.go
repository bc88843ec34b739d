package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"sparkmatch/backend/internal/api"
	"sparkmatch/backend/internal/chathub"
	"sparkmatch/backend/internal/config"
	"sparkmatch/backend/internal/models"
)

// HandleFrame dispatches one inbound WebSocket frame. Failures answer with
// an error frame on the same session; the connection stays up.
func (s *Service) HandleFrame(c chathub.Client, frame models.ClientFrame) {
	ctx, cancel := context.WithTimeout(context.Background(), config.ServiceCallTimeout)
	defer cancel()

	var err error
	switch frame.Type {
	case models.FrameMessageSend:
		err = s.sendFrame(ctx, c, frame)
	case models.FrameReadSet:
		_, err = s.MarkRead(ctx, c.UserID(), frame.ConversationID, frame.UpToMessageID)
	case models.FrameTypingSet:
		err = s.Typing(ctx, c.UserID(), frame.ConversationID, frame.State)
	default:
		err = api.Validation(map[string]string{"type": "unknown frame type"})
	}
	if err != nil {
		s.sendErrorFrame(c, err)
	}
}

// sendFrame runs message.send with retry absorption: a frame replayed with
// the same idempotency key re-acks the original message instead of creating
// a second one.
func (s *Service) sendFrame(ctx context.Context, c chathub.Client, frame models.ClientFrame) error {
	key := ""
	if frame.IdempotencyKey != "" {
		key = strconv.FormatInt(c.UserID(), 10) + ":" + frame.IdempotencyKey
		if view, ok := s.sentKeys.Get(key); ok {
			ack, err := json.Marshal(models.MessageCreatedFrame{
				Type:           models.FrameMessageCreated,
				ConversationID: view.ConversationID,
				Message:        view,
			})
			if err == nil {
				c.Enqueue(ack)
			}
			return nil
		}
	}
	view, err := s.Send(ctx, c.UserID(), frame.ConversationID, frame.Text)
	if err != nil {
		return err
	}
	if key != "" {
		s.sentKeys.Add(key, *view)
	}
	return nil
}

func (s *Service) sendErrorFrame(c chathub.Client, err error) {
	code, message := "send_failed", "operation failed"
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		code, message = apiErr.Code, apiErr.Message
	} else {
		s.Log.Error().Err(err).Int64("user_id", c.UserID()).Msg("frame dispatch")
	}
	frame, marshalErr := json.Marshal(models.ErrorFrame{
		Type:    models.FrameError,
		Code:    code,
		Message: message,
	})
	if marshalErr != nil {
		return
	}
	c.Enqueue(frame)
}

var _ chathub.FrameHandler = (*Service)(nil)

// touchPresence bumps last_seen when a session connects or disconnects so
// the freshness ranking term stays honest for mostly-online users.
func (s *Service) touchPresence(userID int64) {
	if err := s.Storage.TouchLastSeen(userID); err != nil {
		s.Log.Warn().Err(err).Int64("user_id", userID).Msg("touch last_seen")
	}
}
