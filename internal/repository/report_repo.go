package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/lingua-go-api/internal/models"
)

// FeedbackReportRepository defines data operations for scoring summaries.
type FeedbackReportRepository interface {
	Save(ctx context.Context, report *models.FeedbackReport) error
	GetBySession(ctx context.Context, sessionID uint) (models.FeedbackReport, error)
}

type feedbackReportRepository struct {
	db *gorm.DB
}

// NewFeedbackReportRepository instantiates the repository.
func NewFeedbackReportRepository(db *gorm.DB) FeedbackReportRepository {
	return &feedbackReportRepository{db: db}
}

// Save upserts on session id so a score override refreshes the report.
func (r *feedbackReportRepository) Save(ctx context.Context, report *models.FeedbackReport) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"recommendations", "overall_score", "score_breakdown", "generated_at",
		}),
	}).Create(report).Error
}

func (r *feedbackReportRepository) GetBySession(ctx context.Context, sessionID uint) (models.FeedbackReport, error) {
	var report models.FeedbackReport
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&report).Error; err != nil {
		return models.FeedbackReport{}, err
	}

	return report, nil
}
