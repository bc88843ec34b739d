package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sparkmatch/backend/internal/models"
)

// GetOrCreateConversation returns the conversation for the canonical pair,
// creating it if absent. Concurrent creation collapses on the unique pair
// constraint.
func (s *Service) GetOrCreateConversation(a, b int64, matchID *int64) (*models.Conversation, error) {
	u1, u2 := models.CanonicalPair(a, b)
	conv := models.Conversation{User1ID: u1, User2ID: u2, MatchID: matchID}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
		DoNothing: true,
	}).Create(&conv).Error; err != nil {
		return nil, err
	}
	var out models.Conversation
	if err := s.DB.Where("user1_id = ? AND user2_id = ?", u1, u2).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) GetConversation(id int64) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.DB.First(&conv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations pages by (updated_at, id) descending so threads with
// recent messages sort first.
func (s *Service) ListConversations(userID int64, limit int, beforeUpdatedAt time.Time, beforeID int64) ([]models.Conversation, error) {
	db := s.DB.Where("user1_id = ? OR user2_id = ?", userID, userID)
	if !beforeUpdatedAt.IsZero() {
		db = db.Where("(updated_at, id) < (?, ?)", beforeUpdatedAt, beforeID)
	}
	var convs []models.Conversation
	err := db.Order("updated_at DESC, id DESC").Limit(limit).Find(&convs).Error
	return convs, err
}

// CreateMessage inserts the message and touches the conversation in a single
// transaction; a failed touch rolls the message back.
func (s *Service) CreateMessage(msg *models.Message) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("updated_at", msg.CreatedAt).Error
	})
}

func (s *Service) GetMessage(id int64) (*models.Message, error) {
	var msg models.Message
	err := s.DB.First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns a backwards page: the `limit` newest messages older
// than beforeID (or the newest overall when beforeID is zero), in ascending
// order for the client.
func (s *Service) ListMessages(conversationID, beforeID int64, limit int) ([]models.Message, error) {
	db := s.DB.Where("conversation_id = ?", conversationID)
	if beforeID > 0 {
		db = db.Where("id < ?", beforeID)
	}
	var msgs []models.Message
	if err := db.Order("created_at DESC, id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// RetractMessage flags the message as retracted. The row stays; deletion is
// always logical.
func (s *Service) RetractMessage(id int64) error {
	res := s.DB.Model(&models.Message{}).Where("id = ?", id).Update("is_retracted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AdvanceReadCursor moves the high-water mark forward, never backward, and
// returns the effective position.
func (s *Service) AdvanceReadCursor(conversationID, userID, upToMessageID int64) (int64, error) {
	now := time.Now()
	cursor := models.ReadCursor{
		ConversationID:    conversationID,
		UserID:            userID,
		LastReadMessageID: upToMessageID,
		LastReadAt:        now,
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_read_message_id": gorm.Expr("GREATEST(read_cursors.last_read_message_id, ?)", upToMessageID),
			"last_read_at":         now,
		}),
	}).Create(&cursor).Error
	if err != nil {
		return 0, err
	}
	var out models.ReadCursor
	if err := s.DB.Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&out).Error; err != nil {
		return 0, err
	}
	return out.LastReadMessageID, nil
}

// UnreadCount counts counterparty messages past the user's read cursor.
func (s *Service) UnreadCount(conversationID, userID int64) (int64, error) {
	var cursor models.ReadCursor
	lastRead := int64(0)
	err := s.DB.Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&cursor).Error
	if err == nil {
		lastRead = cursor.LastReadMessageID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	var count int64
	err = s.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND id > ?", conversationID, userID, lastRead).
		Count(&count).Error
	return count, err
}

func (s *Service) SetConversationBlocked(conversationID, byUserID int64) error {
	res := s.DB.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("blocked_by", byUserID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
