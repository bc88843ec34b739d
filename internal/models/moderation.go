package models

import "time"

// Block prevents two users from exchanging messages and hides the blocker
// from the blocked user's discovery results. Blocks are never auto-removed.
type Block struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	BlockerID int64     `gorm:"not null;uniqueIndex:idx_block_pair" json:"blocker_id"`
	BlockedID int64     `gorm:"not null;uniqueIndex:idx_block_pair;index" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Report statuses.
const (
	ReportOpen     = "open"
	ReportResolved = "resolved"
)

// Report is a user complaint about another user. Reports never affect
// matching directly; moderators act on them through the admin CLI.
type Report struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	ReporterID     int64     `gorm:"not null;index" json:"reporter_id"`
	ReportedID     int64     `gorm:"not null;index" json:"reported_id"`
	ConversationID *int64    `json:"conversation_id,omitempty"`
	Category       string    `gorm:"not null" json:"category"`
	Reason         string    `json:"reason,omitempty"`
	Status         string    `gorm:"not null;default:open" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
