package gateway

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"sparkmatch/backend/internal/api"
)

// limiterEntry is one token bucket plus the last time it was touched, for
// eviction of idle subjects.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps per-subject token buckets. Authenticated requests are
// keyed by user id with the higher budget; anonymous ones by client IP.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*limiterEntry

	anonRPM int
	authRPM int
	verify  api.TokenVerifyFunc
}

func NewRateLimiter(anonRPM, authRPM int, verify api.TokenVerifyFunc) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*limiterEntry),
		anonRPM: anonRPM,
		authRPM: authRPM,
		verify:  verify,
	}
	go rl.evictLoop()
	return rl
}

// subject resolves the rate-limit key and budget for a request. A valid
// bearer token buys the authenticated budget; everything else shares the
// per-IP anonymous one.
func (rl *RateLimiter) subject(c *gin.Context) (string, int) {
	if token := api.BearerToken(c.Request); token != "" {
		if userID, _, err := rl.verify(token); err == nil {
			return "user:" + strconv.FormatInt(userID, 10), rl.authRPM
		}
	}
	return "ip:" + c.ClientIP(), rl.anonRPM
}

func (rl *RateLimiter) take(key string, rpm int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	entry, ok := rl.buckets[key]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		}
		rl.buckets[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// Middleware rejects over-budget requests with 429 and a Retry-After hint.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key, rpm := rl.subject(c)
		if !rl.take(key, rpm) {
			rateLimited.Inc()
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    api.CodeRateLimited,
				"message": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// evictLoop drops buckets idle for over an hour so the map does not grow
// with every IP ever seen.
func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-time.Hour)
		rl.mu.Lock()
		for key, entry := range rl.buckets {
			if entry.lastSeen.Before(cutoff) {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}
