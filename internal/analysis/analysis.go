// Package analysis turns moderation reports into a per-user risk score so
// operators can triage the worst offenders first.
package analysis

// Report category weights. Unknown categories carry the default weight so a
// new client category still counts.
var categoryWeights = map[string]float64{
	"spam":         1,
	"scam":         5,
	"harassment":   4,
	"underage":     8,
	"fake_profile": 3,
	"nsfw_content": 3,
	"other":        1,
}

const defaultWeight = 1

// Weight returns the risk contribution of one report category.
func Weight(category string) float64 {
	if w, ok := categoryWeights[category]; ok {
		return w
	}
	return defaultWeight
}
