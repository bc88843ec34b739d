package profile

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sparkmatch/backend/internal/models"
)

func validInput() CreateInput {
	return CreateInput{
		Name:        "Alice",
		BirthDate:   "1996-04-02",
		Gender:      "female",
		Orientation: "male",
		Goal:        "dating",
		Interests:   []string{"music", "travel"},
		HeightCM:    168,
		Education:   "master",
	}
}

func TestValidateCreate_Valid(t *testing.T) {
	in := validInput()
	details := validateCreate(&in, time.Now())
	assert.Empty(t, details)
}

func TestValidateCreate_FieldErrors(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(*CreateInput)
		field   string
	}{
		{"short name", func(in *CreateInput) { in.Name = "A" }, "name"},
		{"long name", func(in *CreateInput) { in.Name = strings.Repeat("a", 101) }, "name"},
		{"missing birth date", func(in *CreateInput) { in.BirthDate = "" }, "birth_date"},
		{"underage", func(in *CreateInput) { in.BirthDate = "2010-01-01" }, "birth_date"},
		{"implausible age", func(in *CreateInput) { in.BirthDate = "1890-01-01" }, "birth_date"},
		{"bad date format", func(in *CreateInput) { in.BirthDate = "02/04/1996" }, "birth_date"},
		{"bad gender", func(in *CreateInput) { in.Gender = "unknown" }, "gender"},
		{"bad orientation", func(in *CreateInput) { in.Orientation = "everyone" }, "orientation"},
		{"bad goal", func(in *CreateInput) { in.Goal = "chess" }, "goal"},
		{"long bio", func(in *CreateInput) { in.Bio = strings.Repeat("x", 1001) }, "bio"},
		{"too many interests", func(in *CreateInput) {
			in.Interests = make([]string, 21)
			for i := range in.Interests {
				in.Interests[i] = "tag"
			}
		}, "interests"},
		{"long tag", func(in *CreateInput) { in.Interests = []string{strings.Repeat("t", 51)} }, "interests"},
		{"short height", func(in *CreateInput) { in.HeightCM = 90 }, "height_cm"},
		{"tall height", func(in *CreateInput) { in.HeightCM = 260 }, "height_cm"},
		{"bad education", func(in *CreateInput) { in.Education = "academy" }, "education"},
		{"lat without lon", func(in *CreateInput) { lat := 50.45; in.Lat = &lat }, "location"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			details := validateCreate(&in, now)
			assert.Contains(t, details, tt.field)
		})
	}
}

func TestValidateUpdate_ImmutableFields(t *testing.T) {
	bd := "1990-01-01"
	gender := "male"
	details := validateUpdate(&UpdateInput{BirthDate: &bd, Gender: &gender})
	assert.Contains(t, details, "birth_date")
	assert.Contains(t, details, "gender")
}

func TestValidateUpdate_PartialOK(t *testing.T) {
	bio := "hello there"
	details := validateUpdate(&UpdateInput{Bio: &bio})
	assert.Empty(t, details)
}

func TestIsComplete(t *testing.T) {
	now := time.Now()
	p := &models.Profile{
		Name:        "Bob",
		BirthDate:   now.AddDate(-30, 0, 0),
		Gender:      "male",
		Orientation: "female",
		Goal:        "serious",
	}
	assert.True(t, isComplete(p, now))

	p.Goal = ""
	assert.False(t, isComplete(p, now))

	p.Goal = "serious"
	p.BirthDate = now.AddDate(-17, 0, 0)
	assert.False(t, isComplete(p, now), "minors are never complete")
}

func TestProfileAge(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	p := &models.Profile{BirthDate: time.Date(1998, 8, 25, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, 27, p.Age(now), "birthday tomorrow: still 27")

	p.BirthDate = time.Date(1998, 8, 24, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 28, p.Age(now), "birthday today: 28")
}
