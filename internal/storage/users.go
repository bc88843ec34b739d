package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sparkmatch/backend/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// UpsertUserByTelegramID ensures a User row exists for the Telegram identity
// and returns it. Called on every successful initData validation.
func (s *Service) UpsertUserByTelegramID(telegramID int64, username string) (*models.User, error) {
	user := models.User{
		TelegramID:       telegramID,
		TelegramUsername: username,
		LastSeenAt:       time.Now(),
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.Assignments(map[string]any{"last_seen_at": time.Now(), "telegram_username": username}),
	}).Create(&user).Error
	if err != nil {
		return nil, err
	}
	// The upsert does not populate ID on conflict; read the row back.
	var out models.User
	if err := s.DB.Where("telegram_id = ?", telegramID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) GetUserByID(id int64) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) UpdateUser(user *models.User) error {
	return s.DB.Save(user).Error
}

// TouchLastSeen refreshes the freshness-ranking input. Best effort; callers
// ignore the error.
func (s *Service) TouchLastSeen(userID int64) error {
	return s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen_at", time.Now()).Error
}
