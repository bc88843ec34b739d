package config

import "time"

const (
	// Ranking weights (must sum to 1.0)
	WeightInterests = 0.40
	WeightGoal      = 0.20
	WeightEducation = 0.10
	WeightDistance  = 0.20
	WeightFreshness = 0.10

	FreshnessHalfLife = 7 * 24 * time.Hour

	// Candidate paging
	DefaultPageSize = 10
	MaxPageSize     = 50

	// Caches
	ProfileCacheTTL   = 5 * time.Minute
	CandidateCacheTTL = 30 * time.Second

	// Idempotency replay
	IdempotencyEntries = 10000
	IdempotencyWindow  = 10 * time.Minute

	// Favorites
	MaxFavorites = 500

	// Chat
	MaxMessageBytes   = 4096
	SendQueueSize     = 256
	RetractionWindow  = 15 * time.Minute

	// Gateway
	ProxyTotalTimeout   = 10 * time.Second
	ProxyConnectTimeout = 2 * time.Second
	HealthProbeInterval = 30 * time.Second
	HealthProbeTimeout  = 2 * time.Second
	HealthDownAfter     = 60 * time.Second

	// Internal synchronous calls
	ServiceCallTimeout = 8 * time.Second
	DBStatementTimeout = 5 * time.Second

	// Notification relay
	BotCallTimeout   = 5 * time.Second
	RelayMaxAttempts = 5
)

// EducationTiers orders education levels for the proximity term of the
// ranking score.
var EducationTiers = map[string]int{
	"high_school": 0,
	"bachelor":    1,
	"master":      2,
	"phd":         3,
	"other":       1,
}
