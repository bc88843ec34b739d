package storage

import (
	"encoding/json"
	"fmt"

	"sparkmatch/backend/internal/config"
	"sparkmatch/backend/internal/models"
)

func profileCacheKey(userID int64) string {
	return fmt.Sprintf("profile:%d", userID)
}

// CachedProfile returns the Redis-cached profile view, if any. Cache misses
// and Redis errors both fall through to the database.
func (s *Service) CachedProfile(userID int64) (*models.Profile, bool) {
	if s.Redis == nil {
		return nil, false
	}
	raw, err := s.Redis.Get(s.Ctx, profileCacheKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var profile models.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, false
	}
	return &profile, true
}

// StoreCachedProfile caches a profile for the discovery read path (5 minute
// TTL per the service contract). Best effort.
func (s *Service) StoreCachedProfile(profile *models.Profile) {
	if s.Redis == nil || profile == nil {
		return
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return
	}
	s.Redis.Set(s.Ctx, profileCacheKey(profile.UserID), raw, config.ProfileCacheTTL)
}

// InvalidateCachedProfile drops the cached copy after a write.
func (s *Service) InvalidateCachedProfile(userID int64) {
	if s.Redis == nil {
		return
	}
	s.Redis.Del(s.Ctx, profileCacheKey(userID))
}

func exclusionsCacheKey(userID int64) string {
	return fmt.Sprintf("exclusions:%d", userID)
}

// CachedExclusions returns the short-lived cached exclusion set for the
// candidate query. The TTL is a guard against hammering the multi-table
// exclusion query on rapid repeat feeds, not a consistency boundary.
func (s *Service) CachedExclusions(userID int64) ([]int64, bool) {
	if s.Redis == nil {
		return nil, false
	}
	raw, err := s.Redis.Get(s.Ctx, exclusionsCacheKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, false
	}
	return ids, true
}

func (s *Service) StoreCachedExclusions(userID int64, ids []int64) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	s.Redis.Set(s.Ctx, exclusionsCacheKey(userID), raw, config.CandidateCacheTTL)
}

// InvalidateExclusions drops the cached set after a swipe so the target does
// not reappear in the next feed page.
func (s *Service) InvalidateExclusions(userID int64) {
	if s.Redis == nil {
		return
	}
	s.Redis.Del(s.Ctx, exclusionsCacheKey(userID))
}
