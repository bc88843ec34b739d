// Package profile owns profile CRUD, its validation invariants, and photo
// metadata. Photo binaries live in the external media service.
package profile

import (
	"fmt"
	"slices"
	"time"

	"sparkmatch/backend/internal/models"
)

const (
	minAge       = 18
	maxAge       = 120
	minNameLen   = 2
	maxNameLen   = 100
	maxBioLen    = 1000
	maxInterests = 20
	maxTagLen    = 50
	minHeightCM  = 100
	maxHeightCM  = 250
)

// CreateInput is the POST /profiles body. Everything required must be
// present; optional fields may be omitted.
type CreateInput struct {
	Name        string   `json:"name"`
	BirthDate   string   `json:"birth_date"` // YYYY-MM-DD
	Gender      string   `json:"gender"`
	Orientation string   `json:"orientation"`
	Goal        string   `json:"goal"`
	Bio         string   `json:"bio"`
	Interests   []string `json:"interests"`
	HeightCM    int      `json:"height_cm"`
	Education   string   `json:"education"`

	HasChildren   *bool `json:"has_children"`
	WantsChildren *bool `json:"wants_children"`
	Smoking       *bool `json:"smoking"`
	Drinking      *bool `json:"drinking"`

	Country string   `json:"country"`
	City    string   `json:"city"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`

	HideAge           bool    `json:"hide_age"`
	HideDistance      bool    `json:"hide_distance"`
	HideOnline        bool    `json:"hide_online"`
	AllowMessagesFrom *string `json:"allow_messages_from"`
}

// UpdateInput is the PATCH body; nil means "leave unchanged". birth_date and
// gender are immutable and rejected outright.
type UpdateInput struct {
	Name        *string   `json:"name"`
	BirthDate   *string   `json:"birth_date"`
	Gender      *string   `json:"gender"`
	Orientation *string   `json:"orientation"`
	Goal        *string   `json:"goal"`
	Bio         *string   `json:"bio"`
	Interests   *[]string `json:"interests"`
	HeightCM    *int      `json:"height_cm"`
	Education   *string   `json:"education"`

	HasChildren   *bool `json:"has_children"`
	WantsChildren *bool `json:"wants_children"`
	Smoking       *bool `json:"smoking"`
	Drinking      *bool `json:"drinking"`

	Country *string  `json:"country"`
	City    *string  `json:"city"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`

	HideAge           *bool   `json:"hide_age"`
	HideDistance      *bool   `json:"hide_distance"`
	HideOnline        *bool   `json:"hide_online"`
	AllowMessagesFrom *string `json:"allow_messages_from"`
	IsVisible         *bool   `json:"is_visible"`
}

// validateCreate returns per-field messages; an empty map means the input is
// acceptable.
func validateCreate(in *CreateInput, now time.Time) map[string]string {
	details := make(map[string]string)

	if l := len(in.Name); l < minNameLen || l > maxNameLen {
		details["name"] = fmt.Sprintf("must be %d-%d characters", minNameLen, maxNameLen)
	}
	if _, msg := parseBirthDate(in.BirthDate, now); msg != "" {
		details["birth_date"] = msg
	}
	if !slices.Contains(models.Genders, in.Gender) {
		details["gender"] = "must be one of male, female, other"
	}
	if !slices.Contains(models.Orientations, in.Orientation) {
		details["orientation"] = "must be one of male, female, any"
	}
	if !slices.Contains(models.Goals, in.Goal) {
		details["goal"] = "unknown goal"
	}
	if msg := validateBio(in.Bio); msg != "" {
		details["bio"] = msg
	}
	if msg := validateInterests(in.Interests); msg != "" {
		details["interests"] = msg
	}
	if in.HeightCM != 0 && (in.HeightCM < minHeightCM || in.HeightCM > maxHeightCM) {
		details["height_cm"] = fmt.Sprintf("must be %d-%d", minHeightCM, maxHeightCM)
	}
	if in.Education != "" && !slices.Contains(models.Educations, in.Education) {
		details["education"] = "unknown education level"
	}
	if in.AllowMessagesFrom != nil && *in.AllowMessagesFrom != "matches" && *in.AllowMessagesFrom != "anyone" {
		details["allow_messages_from"] = "must be matches or anyone"
	}
	if msg := validateCoords(in.Lat, in.Lon); msg != "" {
		details["location"] = msg
	}
	return details
}

// validateUpdate checks only the supplied fields and rejects immutable ones.
func validateUpdate(in *UpdateInput) map[string]string {
	details := make(map[string]string)

	if in.BirthDate != nil {
		details["birth_date"] = "immutable"
	}
	if in.Gender != nil {
		details["gender"] = "immutable"
	}
	if in.Name != nil {
		if l := len(*in.Name); l < minNameLen || l > maxNameLen {
			details["name"] = fmt.Sprintf("must be %d-%d characters", minNameLen, maxNameLen)
		}
	}
	if in.Orientation != nil && !slices.Contains(models.Orientations, *in.Orientation) {
		details["orientation"] = "must be one of male, female, any"
	}
	if in.Goal != nil && !slices.Contains(models.Goals, *in.Goal) {
		details["goal"] = "unknown goal"
	}
	if in.Bio != nil {
		if msg := validateBio(*in.Bio); msg != "" {
			details["bio"] = msg
		}
	}
	if in.Interests != nil {
		if msg := validateInterests(*in.Interests); msg != "" {
			details["interests"] = msg
		}
	}
	if in.HeightCM != nil && *in.HeightCM != 0 && (*in.HeightCM < minHeightCM || *in.HeightCM > maxHeightCM) {
		details["height_cm"] = fmt.Sprintf("must be %d-%d", minHeightCM, maxHeightCM)
	}
	if in.Education != nil && *in.Education != "" && !slices.Contains(models.Educations, *in.Education) {
		details["education"] = "unknown education level"
	}
	if in.AllowMessagesFrom != nil && *in.AllowMessagesFrom != "matches" && *in.AllowMessagesFrom != "anyone" {
		details["allow_messages_from"] = "must be matches or anyone"
	}
	if msg := validateCoords(in.Lat, in.Lon); msg != "" {
		details["location"] = msg
	}
	return details
}

func parseBirthDate(raw string, now time.Time) (time.Time, string) {
	if raw == "" {
		return time.Time{}, "required"
	}
	birthDate, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, "must be YYYY-MM-DD"
	}
	p := models.Profile{BirthDate: birthDate}
	age := p.Age(now)
	if age < minAge {
		return time.Time{}, "must be at least 18 years old"
	}
	if age > maxAge {
		return time.Time{}, "implausible age"
	}
	return birthDate, ""
}

func validateBio(bio string) string {
	if len(bio) > maxBioLen {
		return fmt.Sprintf("must be at most %d characters", maxBioLen)
	}
	return ""
}

func validateInterests(interests []string) string {
	if len(interests) > maxInterests {
		return fmt.Sprintf("at most %d tags", maxInterests)
	}
	for _, tag := range interests {
		if tag == "" || len(tag) > maxTagLen {
			return fmt.Sprintf("each tag must be 1-%d characters", maxTagLen)
		}
	}
	return ""
}

func validateCoords(lat, lon *float64) string {
	if (lat == nil) != (lon == nil) {
		return "lat and lon must be supplied together"
	}
	if lat != nil && (*lat < -90 || *lat > 90 || *lon < -180 || *lon > 180) {
		return "coordinates out of range"
	}
	return ""
}

// isComplete recomputes the derived completeness flag.
func isComplete(p *models.Profile, now time.Time) bool {
	return p.Name != "" &&
		!p.BirthDate.IsZero() &&
		p.Gender != "" &&
		p.Orientation != "" &&
		p.Goal != "" &&
		p.Age(now) >= minAge
}
