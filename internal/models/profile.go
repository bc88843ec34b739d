package models

import (
	"time"

	"github.com/lib/pq"
)

// Allowed enum values for profile fields. Validation rejects anything else.
var (
	Genders      = []string{"male", "female", "other"}
	Orientations = []string{"male", "female", "any"}
	Goals        = []string{"friendship", "dating", "relationship", "networking", "serious", "casual"}
	Educations   = []string{"high_school", "bachelor", "master", "phd", "other"}
)

// Profile is the public face of a User, 1:1 by user_id. is_complete is a
// derived flag: all required fields present and age >= 18. An incomplete
// profile never appears in discovery.
type Profile struct {
	UserID    int64     `gorm:"primaryKey" json:"user_id"`
	Name      string    `gorm:"not null" json:"name"`
	BirthDate time.Time `gorm:"not null" json:"birth_date"`

	Gender      string `gorm:"not null;index" json:"gender"`
	Orientation string `gorm:"not null" json:"orientation"`
	Goal        string `gorm:"not null" json:"goal"`

	Bio       string         `json:"bio,omitempty"`
	Interests pq.StringArray `gorm:"type:text[]" json:"interests"`

	HeightCM  int    `json:"height_cm,omitempty"`
	Education string `json:"education,omitempty"`

	HasChildren   *bool `json:"has_children,omitempty"`
	WantsChildren *bool `json:"wants_children,omitempty"`
	Smoking       *bool `json:"smoking,omitempty"`
	Drinking      *bool `json:"drinking,omitempty"`

	Country string   `json:"country,omitempty"`
	City    string   `json:"city,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
	Geohash string   `gorm:"index" json:"-"`

	HideAge           bool   `json:"hide_age"`
	HideDistance      bool   `json:"hide_distance"`
	HideOnline        bool   `json:"hide_online"`
	AllowMessagesFrom string `gorm:"not null;default:matches" json:"allow_messages_from"`

	IsVisible  bool `gorm:"not null;default:true;index:idx_discoverable" json:"is_visible"`
	IsComplete bool `gorm:"not null;default:false;index:idx_discoverable" json:"is_complete"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// OwnerLastSeen is scanned from the joined users row by candidate
	// queries; it is not a profiles column.
	OwnerLastSeen time.Time `gorm:"column:owner_last_seen;->;-:migration" json:"-"`

	Photos []Photo `gorm:"foreignKey:ProfileUserID" json:"photos,omitempty"`
}

// Age computes full years at the given instant.
func (p *Profile) Age(now time.Time) int {
	years := now.Year() - p.BirthDate.Year()
	anniversary := p.BirthDate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

// WantsGender reports whether the profile's orientation accepts the given
// gender. "any" accepts everything.
func (p *Profile) WantsGender(gender string) bool {
	return p.Orientation == "any" || p.Orientation == gender
}

// Photo is metadata for an image stored by the external media service. Only
// approved photos under the NSFW threshold are shown to other users.
type Photo struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	ProfileUserID int64     `gorm:"not null;index" json:"-"`
	URL           string    `gorm:"not null" json:"url"`
	SortOrder     int       `gorm:"not null" json:"sort_order"`
	IsPrimary     bool      `gorm:"not null;default:false" json:"is_primary"`
	NSFWScore     float64   `gorm:"not null;default:0" json:"nsfw_score"`
	Status        string    `gorm:"not null;default:pending" json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Photo moderation states.
const (
	PhotoPending  = "pending"
	PhotoApproved = "approved"
	PhotoRejected = "rejected"
)

// VisibleTo reports whether the photo may be shown to users other than its
// owner, given the configured NSFW threshold.
func (p *Photo) VisibleTo(threshold float64) bool {
	return p.Status == PhotoApproved && p.NSFWScore < threshold
}
