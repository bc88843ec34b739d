package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sparkmatch/backend/internal/config"
	"sparkmatch/backend/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestInterestOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical sets", []string{"hiking", "jazz"}, []string{"hiking", "jazz"}, 1.0},
		{"disjoint sets", []string{"hiking"}, []string{"jazz"}, 0.0},
		{"partial overlap", []string{"hiking", "jazz", "cooking"}, []string{"jazz", "cooking", "travel"}, 0.5},
		{"one empty", []string{"hiking"}, nil, 0.0},
		{"both empty", nil, nil, 0.0},
		{"duplicates ignored", []string{"jazz", "jazz"}, []string{"jazz"}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, InterestOverlap(tt.a, tt.b), 1e-9)
		})
	}
}

func TestScoreSharedGoal(t *testing.T) {
	now := time.Now()
	viewer := &models.Profile{Goal: "relationship"}
	same := &models.Profile{Goal: "relationship"}
	other := &models.Profile{Goal: "friendship"}

	withGoal := Score(viewer, same, time.Time{}, 0, now)
	withoutGoal := Score(viewer, other, time.Time{}, 0, now)
	assert.InDelta(t, config.WeightGoal, withGoal-withoutGoal, 1e-9)
}

func TestScoreMissingInputsContributeZero(t *testing.T) {
	now := time.Now()
	viewer := &models.Profile{Goal: "relationship"}
	cand := &models.Profile{Goal: "friendship"}

	// No interests, no education, no coordinates, no last_seen.
	assert.Zero(t, Score(viewer, cand, time.Time{}, 0, now))
}

func TestScoreDistanceDecay(t *testing.T) {
	now := time.Now()
	viewer := &models.Profile{Lat: floatPtr(50.45), Lon: floatPtr(30.52)}
	near := &models.Profile{Lat: floatPtr(50.45), Lon: floatPtr(30.53)}
	far := &models.Profile{Lat: floatPtr(48.46), Lon: floatPtr(35.04)}

	assert.Greater(t,
		Score(viewer, near, time.Time{}, 0, now),
		Score(viewer, far, time.Time{}, 0, now))
}

func TestScoreFreshnessHalfLife(t *testing.T) {
	now := time.Now()
	viewer := &models.Profile{}
	cand := &models.Profile{}

	justSeen := Score(viewer, cand, now, 0, now)
	weekOld := Score(viewer, cand, now.Add(-config.FreshnessHalfLife), 0, now)

	assert.InDelta(t, config.WeightFreshness, justSeen, 1e-9)
	assert.InDelta(t, config.WeightFreshness/2, weekOld, 1e-6)
}

func TestEducationProximity(t *testing.T) {
	assert.InDelta(t, 1.0, educationProximity("bachelor", "bachelor"), 1e-9)
	assert.InDelta(t, 1.0/3.0, educationProximity("high_school", "master"), 1e-9)
	assert.Zero(t, educationProximity("", "bachelor"))
	assert.Zero(t, educationProximity("bachelor", "unknown"))
}

func TestHaversineKm(t *testing.T) {
	// Kyiv to Dnipro, roughly 390 km.
	d := HaversineKm(50.4501, 30.5234, 48.4647, 35.0462)
	assert.InDelta(t, 390, d, 15)

	assert.Zero(t, HaversineKm(50.45, 30.52, 50.45, 30.52))
}
