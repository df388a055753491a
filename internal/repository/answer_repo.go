package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/lingua-go-api/internal/models"
)

// AnswerRepository defines data operations for stored answers.
type AnswerRepository interface {
	GetBySessionAndQuestion(ctx context.Context, sessionID, questionID uint) (models.Answer, error)
	ListBySession(ctx context.Context, sessionID uint) ([]models.Answer, error)
	Upsert(ctx context.Context, answer *models.Answer, activityAt time.Time) error
	Update(ctx context.Context, answer *models.Answer) error
}

type answerRepository struct {
	db *gorm.DB
}

// NewAnswerRepository instantiates the repository.
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) GetBySessionAndQuestion(ctx context.Context, sessionID, questionID uint) (models.Answer, error) {
	var answer models.Answer
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Where("question_id = ?", questionID).
		First(&answer).Error; err != nil {
		return models.Answer{}, err
	}

	return answer, nil
}

func (r *answerRepository) ListBySession(ctx context.Context, sessionID uint) ([]models.Answer, error) {
	var answers []models.Answer
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}

	return answers, nil
}

// Upsert writes the answer for its (session, question) pair and bumps the
// session's last_activity in the same transaction, so the deadline check and
// the write commit as one unit.
func (r *answerRepository) Upsert(ctx context.Context, answer *models.Answer, activityAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"selected_option_id", "content", "audio_url", "is_correct", "score", "listen_count",
			}),
		}).Create(answer).Error; err != nil {
			return err
		}

		return tx.Model(&models.ExamSession{}).
			Where("id = ?", answer.SessionID).
			Update("last_activity", activityAt).Error
	})
}

func (r *answerRepository) Update(ctx context.Context, answer *models.Answer) error {
	return r.db.WithContext(ctx).Save(answer).Error
}
