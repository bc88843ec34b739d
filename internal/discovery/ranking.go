// Package discovery produces ranked candidate streams, ingests swipes,
// detects mutual likes, and manages favorites.
package discovery

import (
	"math"
	"time"

	"sparkmatch/backend/internal/config"
	"sparkmatch/backend/internal/models"
)

// defaultDistanceNormKm normalizes the location term when the request gives
// no max_distance_km filter.
const defaultDistanceNormKm = 100.0

// Score combines the five ranking terms with the documented weights. Terms
// whose inputs are missing (no coordinates, no education) contribute zero.
func Score(viewer, cand *models.Profile, candLastSeen time.Time, maxDistanceKm float64, now time.Time) float64 {
	score := config.WeightInterests * InterestOverlap(viewer.Interests, cand.Interests)

	if viewer.Goal != "" && viewer.Goal == cand.Goal {
		score += config.WeightGoal
	}

	score += config.WeightEducation * educationProximity(viewer.Education, cand.Education)
	score += config.WeightDistance * distanceScore(viewer, cand, maxDistanceKm)
	score += config.WeightFreshness * freshness(candLastSeen, now)

	return score
}

// InterestOverlap is the Jaccard index of the two tag sets. Two empty sets
// overlap in nothing.
func InterestOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, tag := range a {
		set[tag] = struct{}{}
	}
	intersection := 0
	union := len(set)
	seen := make(map[string]struct{}, len(b))
	for _, tag := range b {
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		if _, ok := set[tag]; ok {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func educationProximity(a, b string) float64 {
	tierA, okA := config.EducationTiers[a]
	tierB, okB := config.EducationTiers[b]
	if !okA || !okB {
		return 0
	}
	maxTier := 3 // phd
	return 1 - math.Abs(float64(tierA-tierB))/float64(maxTier)
}

func distanceScore(viewer, cand *models.Profile, maxDistanceKm float64) float64 {
	if viewer.Lat == nil || viewer.Lon == nil || cand.Lat == nil || cand.Lon == nil {
		return 0
	}
	norm := maxDistanceKm
	if norm <= 0 {
		norm = defaultDistanceNormKm
	}
	d := HaversineKm(*viewer.Lat, *viewer.Lon, *cand.Lat, *cand.Lon)
	return 1 - math.Min(d, norm)/norm
}

// freshness decays exponentially with a 7-day half-life: just-seen users
// score 1.0, a week-old last_seen scores 0.5.
func freshness(lastSeen time.Time, now time.Time) float64 {
	if lastSeen.IsZero() {
		return 0
	}
	age := now.Sub(lastSeen)
	if age <= 0 {
		return 1
	}
	return math.Exp2(-age.Hours() / config.FreshnessHalfLife.Hours())
}

// HaversineKm is the great-circle distance between two coordinates.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
