package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/lingua-go-api/internal/models"
)

// LevelRecordRepository defines data operations for CEFR progression records.
type LevelRecordRepository interface {
	GetByStudent(ctx context.Context, studentID uint) (models.LevelRecord, error)
	GetOrCreate(ctx context.Context, studentID uint) (models.LevelRecord, error)
	Update(ctx context.Context, record *models.LevelRecord) error
}

type levelRecordRepository struct {
	db *gorm.DB
}

// NewLevelRecordRepository instantiates the repository.
func NewLevelRecordRepository(db *gorm.DB) LevelRecordRepository {
	return &levelRecordRepository{db: db}
}

func (r *levelRecordRepository) GetByStudent(ctx context.Context, studentID uint) (models.LevelRecord, error) {
	var record models.LevelRecord
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		First(&record).Error; err != nil {
		return models.LevelRecord{}, err
	}

	return record, nil
}

func (r *levelRecordRepository) GetOrCreate(ctx context.Context, studentID uint) (models.LevelRecord, error) {
	record, err := r.GetByStudent(ctx, studentID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.LevelRecord{}, err
	}

	record = models.LevelRecord{StudentID: studentID, OverallLevel: "A1"}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return models.LevelRecord{}, err
	}

	return record, nil
}

func (r *levelRecordRepository) Update(ctx context.Context, record *models.LevelRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}
