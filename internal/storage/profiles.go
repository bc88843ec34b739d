package storage

import (
	"errors"

	"gorm.io/gorm"

	"sparkmatch/backend/internal/models"
)

func (s *Service) CreateProfile(profile *models.Profile) error {
	return s.DB.Create(profile).Error
}

func (s *Service) GetProfile(userID int64) (*models.Profile, error) {
	var profile models.Profile
	err := s.DB.Preload("Photos", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	}).First(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Service) SaveProfile(profile *models.Profile) error {
	if err := s.DB.Omit("Photos").Save(profile).Error; err != nil {
		return err
	}
	s.InvalidateCachedProfile(profile.UserID)
	return nil
}

func (s *Service) ProfileExists(userID int64) (bool, error) {
	var count int64
	err := s.DB.Model(&models.Profile{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (s *Service) AddPhoto(photo *models.Photo) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Photo{}).
			Where("profile_user_id = ?", photo.ProfileUserID).
			Count(&count).Error; err != nil {
			return err
		}
		photo.SortOrder = int(count)
		if count == 0 {
			photo.IsPrimary = true
		}
		return tx.Create(photo).Error
	})
}

func (s *Service) ListPhotos(profileUserID int64) ([]models.Photo, error) {
	var photos []models.Photo
	err := s.DB.Where("profile_user_id = ?", profileUserID).
		Order("sort_order ASC").
		Find(&photos).Error
	return photos, err
}

// DeletePhoto removes a photo and renumbers the rest so sort_order stays
// dense. Primary status moves to the first remaining photo if needed.
func (s *Service) DeletePhoto(profileUserID, photoID int64) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND profile_user_id = ?", photoID, profileUserID).
			Delete(&models.Photo{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return renumberPhotos(tx, profileUserID)
	})
}

// ReorderPhotos applies a client-supplied ordering. IDs not owned by the
// profile are ignored; remaining photos keep their relative order after the
// listed ones.
func (s *Service) ReorderPhotos(profileUserID int64, orderedIDs []int64) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		for i, id := range orderedIDs {
			if err := tx.Model(&models.Photo{}).
				Where("id = ? AND profile_user_id = ?", id, profileUserID).
				Update("sort_order", i).Error; err != nil {
				return err
			}
		}
		return renumberPhotos(tx, profileUserID)
	})
}

func (s *Service) SetPrimaryPhoto(profileUserID, photoID int64) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Photo{}).
			Where("profile_user_id = ?", profileUserID).
			Update("is_primary", false).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Photo{}).
			Where("id = ? AND profile_user_id = ?", photoID, profileUserID).
			Update("is_primary", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Service) HasVisiblePrimaryPhoto(profileUserID int64, nsfwThreshold float64) (bool, error) {
	var count int64
	err := s.DB.Model(&models.Photo{}).
		Where("profile_user_id = ? AND is_primary AND status = ? AND nsfw_score < ?",
			profileUserID, models.PhotoApproved, nsfwThreshold).
		Count(&count).Error
	return count > 0, err
}

func renumberPhotos(tx *gorm.DB, profileUserID int64) error {
	var photos []models.Photo
	if err := tx.Where("profile_user_id = ?", profileUserID).
		Order("sort_order ASC, id ASC").
		Find(&photos).Error; err != nil {
		return err
	}
	hasPrimary := false
	for i := range photos {
		if photos[i].IsPrimary {
			hasPrimary = true
		}
		if photos[i].SortOrder != i {
			if err := tx.Model(&models.Photo{}).
				Where("id = ?", photos[i].ID).
				Update("sort_order", i).Error; err != nil {
				return err
			}
		}
	}
	if !hasPrimary && len(photos) > 0 {
		return tx.Model(&models.Photo{}).
			Where("id = ?", photos[0].ID).
			Update("is_primary", true).Error
	}
	return nil
}
