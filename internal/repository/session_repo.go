package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/lingua-go-api/internal/models"
)

// ExamSessionRepository defines data operations for exam sessions.
type ExamSessionRepository interface {
	GetByID(ctx context.Context, id uint) (models.ExamSession, error)
	GetActiveByStudent(ctx context.Context, studentID uint) (models.ExamSession, error)
	ListByStudent(ctx context.Context, studentID uint, limit int) ([]models.ExamSession, error)
	Create(ctx context.Context, session *models.ExamSession) error
	Update(ctx context.Context, session *models.ExamSession) error
	UpdateStatus(ctx context.Context, id uint, status string) error
}

type examSessionRepository struct {
	db *gorm.DB
}

// NewExamSessionRepository instantiates the repository.
func NewExamSessionRepository(db *gorm.DB) ExamSessionRepository {
	return &examSessionRepository{db: db}
}

func (r *examSessionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.ExamSession{}).Preload("Answers")
}

func (r *examSessionRepository) GetByID(ctx context.Context, id uint) (models.ExamSession, error) {
	var session models.ExamSession
	if err := r.baseQuery(ctx).First(&session, id).Error; err != nil {
		return models.ExamSession{}, err
	}

	return session, nil
}

func (r *examSessionRepository) GetActiveByStudent(ctx context.Context, studentID uint) (models.ExamSession, error) {
	var session models.ExamSession
	if err := r.baseQuery(ctx).
		Where("student_id = ?", studentID).
		Where("status = ?", models.SessionStatusInProgress).
		Order("start_time DESC").
		First(&session).Error; err != nil {
		return models.ExamSession{}, err
	}

	return session, nil
}

func (r *examSessionRepository) ListByStudent(ctx context.Context, studentID uint, limit int) ([]models.ExamSession, error) {
	query := r.baseQuery(ctx).
		Where("student_id = ?", studentID).
		Order("start_time DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var sessions []models.ExamSession
	if err := query.Find(&sessions).Error; err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *examSessionRepository) Create(ctx context.Context, session *models.ExamSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *examSessionRepository) Update(ctx context.Context, session *models.ExamSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

// UpdateStatus transitions only the status column, leaving answers untouched.
func (r *examSessionRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).Model(&models.ExamSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"last_activity": time.Now(),
		}).Error
}
