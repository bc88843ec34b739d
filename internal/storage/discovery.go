package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sparkmatch/backend/internal/models"
)

// candidateFetchCap bounds the ranking working set per request.
const candidateFetchCap = 500

// FindCandidates returns the hard-filtered base set for ranking. Orientation
// symmetry, moderation state, and completeness are enforced here; scoring and
// distance filtering happen in the discovery service.
func (s *Service) FindCandidates(q CandidateQuery) ([]models.Profile, error) {
	now := time.Now()
	db := s.DB.Model(&models.Profile{}).
		Joins("JOIN users ON users.id = profiles.user_id").
		Where("profiles.is_complete AND profiles.is_visible").
		Where("users.is_blocked = false").
		Where("profiles.user_id <> ?", q.ViewerID).
		Where("profiles.gender IN ?", q.Genders).
		Where("profiles.orientation IN ?", []string{"any", q.ViewerGender}).
		Where("profiles.birth_date <= ?", now.AddDate(-18, 0, 0))

	if len(q.ExcludeIDs) > 0 {
		db = db.Where("profiles.user_id NOT IN ?", q.ExcludeIDs)
	}
	if q.AgeMin > 0 {
		db = db.Where("profiles.birth_date <= ?", now.AddDate(-q.AgeMin, 0, 0))
	}
	if q.AgeMax > 0 {
		db = db.Where("profiles.birth_date > ?", now.AddDate(-(q.AgeMax+1), 0, 0))
	}
	if q.HeightMin > 0 {
		db = db.Where("profiles.height_cm >= ?", q.HeightMin)
	}
	if q.HeightMax > 0 {
		db = db.Where("profiles.height_cm <= ?", q.HeightMax)
	}
	if q.Goal != "" {
		db = db.Where("profiles.goal = ?", q.Goal)
	}
	if q.Education != "" {
		db = db.Where("profiles.education = ?", q.Education)
	}
	for col, v := range map[string]*bool{
		"has_children":   q.HasChildren,
		"wants_children": q.WantsChildren,
		"smoking":        q.Smoking,
		"drinking":       q.Drinking,
	} {
		if v != nil {
			db = db.Where("profiles."+col+" = ?", *v)
		}
	}
	if q.VerifiedOnly {
		db = db.Where(`EXISTS (
			SELECT 1 FROM photos
			WHERE photos.profile_user_id = profiles.user_id
			  AND photos.is_primary AND photos.status = ? AND photos.nsfw_score < ?)`,
			models.PhotoApproved, q.NSFWThreshold)
	}

	limit := q.Limit
	if limit <= 0 || limit > candidateFetchCap {
		limit = candidateFetchCap
	}

	var profiles []models.Profile
	err := db.
		Select("profiles.*, users.last_seen_at AS owner_last_seen").
		Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Order("users.last_seen_at DESC").
		Limit(limit).
		Find(&profiles).Error
	return profiles, err
}

// ExcludedTargetIDs collects every user id that must never appear in the
// viewer's candidate stream: anyone already swiped on, matched with, or
// blocked in either direction.
func (s *Service) ExcludedTargetIDs(userID int64) ([]int64, error) {
	seen := make(map[int64]struct{})

	var interacted []int64
	if err := s.DB.Model(&models.Interaction{}).
		Where("actor_id = ?", userID).
		Pluck("target_id", &interacted).Error; err != nil {
		return nil, err
	}
	for _, id := range interacted {
		seen[id] = struct{}{}
	}

	var matches []models.Match
	if err := s.DB.Where("user1_id = ? OR user2_id = ?", userID, userID).
		Find(&matches).Error; err != nil {
		return nil, err
	}
	for i := range matches {
		seen[matches[i].Counterparty(userID)] = struct{}{}
	}

	var blocks []models.Block
	if err := s.DB.Where("blocker_id = ? OR blocked_id = ?", userID, userID).
		Find(&blocks).Error; err != nil {
		return nil, err
	}
	for i := range blocks {
		if blocks[i].BlockerID == userID {
			seen[blocks[i].BlockedID] = struct{}{}
		} else {
			seen[blocks[i].BlockerID] = struct{}{}
		}
	}

	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out, nil
}

func (s *Service) GetInteraction(actorID, targetID int64) (*models.Interaction, error) {
	var inter models.Interaction
	err := s.DB.Where("actor_id = ? AND target_id = ?", actorID, targetID).First(&inter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inter, nil
}

// ApplyInteraction upserts the swipe and runs the mutuality check in one
// transaction. Correctness under concurrency rests on the unique constraints
// on (actor_id, target_id) and (user1_id, user2_id): a concurrent duplicate
// match insert collapses via ON CONFLICT DO NOTHING and is read back.
func (s *Service) ApplyInteraction(actorID, targetID int64, kind string, compatibility float64) (*SwipeResult, error) {
	result := &SwipeResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		inter := models.Interaction{ActorID: actorID, TargetID: targetID, Kind: kind}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
			DoUpdates: clause.Assignments(map[string]any{"kind": kind, "updated_at": time.Now()}),
		}).Create(&inter).Error; err != nil {
			return err
		}
		var stored models.Interaction
		if err := tx.Where("actor_id = ? AND target_id = ?", actorID, targetID).
			First(&stored).Error; err != nil {
			return err
		}
		result.Interaction = &stored

		u1, u2 := models.CanonicalPair(actorID, targetID)

		if kind == models.KindPass {
			// A pass never creates a match, but an earlier mutual like may
			// have; report it so repeated calls stay idempotent.
			var existing models.Match
			if err := tx.Where("user1_id = ? AND user2_id = ?", u1, u2).
				First(&existing).Error; err == nil {
				result.Match = &existing
			}
			return nil
		}

		var reverse models.Interaction
		err := tx.Where("actor_id = ? AND target_id = ? AND kind IN ?",
			targetID, actorID, []string{models.KindLike, models.KindSuperlike}).
			First(&reverse).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err == nil {
			match := models.Match{User1ID: u1, User2ID: u2, CompatibilityScore: compatibility}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
				DoNothing: true,
			}).Create(&match)
			if res.Error != nil {
				return res.Error
			}
			result.MatchIsNew = res.RowsAffected == 1
		}

		// Whether created now, earlier, or by a concurrent request: if a
		// match row is visible at commit time, report it.
		var visible models.Match
		if err := tx.Where("user1_id = ? AND user2_id = ?", u1, u2).
			First(&visible).Error; err == nil {
			result.Match = &visible
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) GetMatchByPair(a, b int64) (*models.Match, error) {
	u1, u2 := models.CanonicalPair(a, b)
	var match models.Match
	err := s.DB.Where("user1_id = ? AND user2_id = ?", u1, u2).First(&match).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// ListMatches pages the user's matches by (created_at, id) descending.
// A zero beforeCreatedAt means the first page.
func (s *Service) ListMatches(userID int64, limit int, beforeCreatedAt time.Time, beforeID int64) ([]models.Match, error) {
	db := s.DB.Where("user1_id = ? OR user2_id = ?", userID, userID)
	if !beforeCreatedAt.IsZero() {
		db = db.Where("(created_at, id) < (?, ?)", beforeCreatedAt, beforeID)
	}
	var matches []models.Match
	err := db.Order("created_at DESC, id DESC").Limit(limit).Find(&matches).Error
	return matches, err
}

func (s *Service) AddFavorite(userID, targetID int64) (bool, error) {
	fav := models.Favorite{UserID: userID, TargetID: targetID}
	res := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "target_id"}},
		DoNothing: true,
	}).Create(&fav)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Service) RemoveFavorite(userID, targetID int64) error {
	return s.DB.Where("user_id = ? AND target_id = ?", userID, targetID).
		Delete(&models.Favorite{}).Error
}

func (s *Service) ListFavorites(userID int64) ([]models.Favorite, error) {
	var favs []models.Favorite
	err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&favs).Error
	return favs, err
}

func (s *Service) CountFavorites(userID int64) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Favorite{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
