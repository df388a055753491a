package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/lingua-go-api/internal/models"
	"github.com/noah-isme/lingua-go-api/internal/repository"
)

// ProgressionService maintains per-skill and overall CEFR levels across exam
// cycles and enforces the one-attempt-per-skill-per-cycle rule.
type ProgressionService interface {
	EnsureSkillAvailable(ctx context.Context, studentID uint, skill string) error
	ApplySkillScore(ctx context.Context, studentID uint, skill string, score float64) (models.LevelRecord, error)
	UpdateOverallLevel(ctx context.Context, studentID uint) (models.LevelRecord, error)
	Record(ctx context.Context, studentID uint) (models.LevelRecord, error)
}

type progressionService struct {
	levels repository.LevelRecordRepository
	logger zerolog.Logger
}

// NewProgressionService constructs the level progression tracker.
func NewProgressionService(levels repository.LevelRecordRepository, logger zerolog.Logger) ProgressionService {
	return &progressionService{
		levels: levels,
		logger: logger.With().Str("component", "progression_service").Logger(),
	}
}

// EnsureSkillAvailable rejects a skill already attempted this cycle. When all
// four skills are complete it resets the cycle first, clearing only the skill
// fields and preserving the overall level.
func (s *progressionService) EnsureSkillAvailable(ctx context.Context, studentID uint, skill string) error {
	record, err := s.levels.GetOrCreate(ctx, studentID)
	if err != nil {
		return err
	}

	if record.CycleComplete() {
		record.ReadingLevel = nil
		record.WritingLevel = nil
		record.ListeningLevel = nil
		record.SpeakingLevel = nil
		if err := s.levels.Update(ctx, &record); err != nil {
			return err
		}

		s.logger.Info().Uint("student_id", studentID).Msg("exam cycle complete, skill levels reset")

		return nil
	}

	if field := record.SkillLevel(skill); field != nil && *field != nil {
		return ErrSkillAlreadyCompleted
	}

	return nil
}

// ApplySkillScore maps the score onto a CEFR level, stores it on the skill
// field and re-derives the overall level.
func (s *progressionService) ApplySkillScore(ctx context.Context, studentID uint, skill string, score float64) (models.LevelRecord, error) {
	record, err := s.levels.GetOrCreate(ctx, studentID)
	if err != nil {
		return models.LevelRecord{}, err
	}

	field := record.SkillLevel(skill)
	if field == nil {
		// Non-skill entries (the finalize fallback label) only touch the
		// overall level.
		return s.UpdateOverallLevel(ctx, studentID)
	}

	level := models.LevelForScore(score)
	*field = &level
	if err := s.levels.Update(ctx, &record); err != nil {
		return models.LevelRecord{}, err
	}

	s.logger.Info().
		Uint("student_id", studentID).
		Str("skill", skill).
		Float64("score", score).
		Str("level", level).
		Msg("skill level updated")

	return s.UpdateOverallLevel(ctx, studentID)
}

// UpdateOverallLevel averages the four skill points (absent skills count as
// A1) and maps the mean back through the score table.
func (s *progressionService) UpdateOverallLevel(ctx context.Context, studentID uint) (models.LevelRecord, error) {
	record, err := s.levels.GetOrCreate(ctx, studentID)
	if err != nil {
		return models.LevelRecord{}, err
	}

	total := 0.0
	for _, skill := range models.Skills {
		level := ""
		if field := record.SkillLevel(skill); field != nil && *field != nil {
			level = **field
		}
		total += models.LevelPoints(level)
	}

	record.OverallLevel = models.LevelForScore(total / float64(len(models.Skills)))
	if err := s.levels.Update(ctx, &record); err != nil {
		return models.LevelRecord{}, err
	}

	return record, nil
}

func (s *progressionService) Record(ctx context.Context, studentID uint) (models.LevelRecord, error) {
	return s.levels.GetOrCreate(ctx, studentID)
}
