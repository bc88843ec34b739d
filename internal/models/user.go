package models

import "time"

// User is the identity record behind every profile. It is created on the
// first successful Telegram auth and never deleted; a misbehaving user is
// soft-blocked and retained for audit.
type User struct {
	ID               int64  `gorm:"primaryKey" json:"id"`
	TelegramID       int64  `gorm:"uniqueIndex;not null" json:"telegram_id"`
	TelegramUsername string `json:"telegram_username,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`

	IsBlocked bool    `gorm:"not null;default:false" json:"is_blocked"`
	RiskScore float64 `gorm:"not null;default:0" json:"risk_score"`
}
