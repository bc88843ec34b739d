package storage

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sparkmatch/backend/internal/analysis"
	"sparkmatch/backend/internal/models"
)

// CreateBlock records a block; repeating it is a no-op.
func (s *Service) CreateBlock(blockerID, blockedID int64) error {
	block := models.Block{BlockerID: blockerID, BlockedID: blockedID}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blocker_id"}, {Name: "blocked_id"}},
		DoNothing: true,
	}).Create(&block).Error
}

// IsBlockedEither reports whether either user has blocked the other.
func (s *Service) IsBlockedEither(a, b int64) (bool, error) {
	var count int64
	err := s.DB.Model(&models.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// CreateReport files the report and bumps the reported user's risk score by
// the category weight in the same transaction.
func (s *Service) CreateReport(report *models.Report) error {
	if report.Status == "" {
		report.Status = models.ReportOpen
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(report).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", report.ReportedID).
			Update("risk_score", gorm.Expr("risk_score + ?", analysis.Weight(report.Category))).
			Error
	})
}

func (s *Service) ListOpenReports(limit int) ([]models.Report, error) {
	var reports []models.Report
	err := s.DB.Where("status = ?", models.ReportOpen).
		Order("created_at ASC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}

func (s *Service) ResolveReport(id int64) error {
	res := s.DB.Model(&models.Report{}).
		Where("id = ?", id).
		Update("status", models.ReportResolved)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
