package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/lingua-go-api/internal/dto"
	"github.com/noah-isme/lingua-go-api/internal/models"
	"github.com/noah-isme/lingua-go-api/internal/repository"
)

// AdminExamService covers the administrative surface: question pool
// management and manual score overrides.
type AdminExamService interface {
	CreateQuestion(ctx context.Context, payload dto.QuestionCreateRequest) (dto.AdminQuestionResponse, error)
	ListQuestions(ctx context.Context, filter dto.QuestionListFilter) ([]dto.AdminQuestionResponse, error)
	DeactivateQuestion(ctx context.Context, id uint) error
	OverrideScore(ctx context.Context, sessionID uint, payload dto.ScoreOverrideRequest) (dto.SessionResponse, error)
}

type adminExamService struct {
	questions repository.QuestionRepository
	scoring   ScoringService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminExamService constructs the admin surface.
func NewAdminExamService(questions repository.QuestionRepository, scoring ScoringService, validate *validator.Validate, logger zerolog.Logger) AdminExamService {
	return &adminExamService{
		questions: questions,
		scoring:   scoring,
		validator: validate,
		logger:    logger.With().Str("component", "admin_exam_service").Logger(),
	}
}

func (s *adminExamService) CreateQuestion(ctx context.Context, payload dto.QuestionCreateRequest) (dto.AdminQuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AdminQuestionResponse{}, err
	}

	options := make([]models.QuestionOption, 0, len(payload.Options))
	for i, option := range payload.Options {
		position := option.Position
		if position == 0 {
			position = i
		}
		options = append(options, models.QuestionOption{
			Content:   strings.TrimSpace(option.Content),
			IsCorrect: option.IsCorrect,
			Position:  position,
		})
	}

	question := models.Question{
		Prompt:        strings.TrimSpace(payload.Prompt),
		Type:          payload.Type,
		Difficulty:    payload.Difficulty,
		SkillCategory: payload.SkillCategory,
		Keywords:      strings.TrimSpace(payload.Keywords),
		IsActive:      true,
		Options:       options,
	}

	if err := s.questions.Create(ctx, &question); err != nil {
		return dto.AdminQuestionResponse{}, err
	}

	s.logger.Info().Uint("question_id", question.ID).Str("skill", question.SkillCategory).Msg("question created")

	return dto.NewAdminQuestionResponse(question), nil
}

func (s *adminExamService) ListQuestions(ctx context.Context, filter dto.QuestionListFilter) ([]dto.AdminQuestionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	questions, err := s.questions.List(ctx, repository.QuestionFilter{
		Skill:      filter.Skill,
		Difficulty: filter.Difficulty,
		Type:       filter.Type,
		ActiveOnly: filter.ActiveOnly,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewAdminQuestionResponseSlice(questions), nil
}

func (s *adminExamService) DeactivateQuestion(ctx context.Context, id uint) error {
	if err := s.questions.Deactivate(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}

	s.logger.Info().Uint("question_id", id).Msg("question deactivated")

	return nil
}

func (s *adminExamService) OverrideScore(ctx context.Context, sessionID uint, payload dto.ScoreOverrideRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	return s.scoring.OverrideScore(ctx, sessionID, payload.Score)
}
