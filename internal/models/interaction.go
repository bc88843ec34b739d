package models

import "time"

// Interaction kinds.
const (
	KindLike      = "like"
	KindSuperlike = "superlike"
	KindPass      = "pass"
)

// Interaction is a directed opinion of one user about another. The
// (actor, target) pair is unique; repeating a swipe upserts the row.
type Interaction struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	ActorID  int64  `gorm:"not null;uniqueIndex:idx_actor_target" json:"actor_id"`
	TargetID int64  `gorm:"not null;uniqueIndex:idx_actor_target;index" json:"target_id"`
	Kind     string `gorm:"not null" json:"kind"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsPositive reports whether the interaction counts toward mutuality.
func (i *Interaction) IsPositive() bool {
	return i.Kind == KindLike || i.Kind == KindSuperlike
}

// Match links two users who liked each other. Rows are canonical
// (user1_id < user2_id) and immutable; unmatching happens through a
// conversation block, never by deleting the match.
type Match struct {
	ID                 int64     `gorm:"primaryKey" json:"id"`
	User1ID            int64     `gorm:"not null;uniqueIndex:idx_match_pair" json:"user1_id"`
	User2ID            int64     `gorm:"not null;uniqueIndex:idx_match_pair" json:"user2_id"`
	CompatibilityScore float64   `gorm:"not null;default:0" json:"compatibility_score"`
	CreatedAt          time.Time `json:"created_at"`
}

// Counterparty returns the other participant of the match.
func (m *Match) Counterparty(userID int64) int64 {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// CanonicalPair orders two user ids so that paired rows (matches,
// conversations) are unique regardless of who acted first.
func CanonicalPair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// Favorite is a bookmark from one user to another, independent of likes
// and matches.
type Favorite struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_fav_pair" json:"user_id"`
	TargetID  int64     `gorm:"not null;uniqueIndex:idx_fav_pair" json:"target_id"`
	CreatedAt time.Time `json:"created_at"`
}
