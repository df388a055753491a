package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/lingua-go-api/internal/dto"
	"github.com/noah-isme/lingua-go-api/internal/models"
	"github.com/noah-isme/lingua-go-api/internal/observability"
	"github.com/noah-isme/lingua-go-api/internal/repository"
	"github.com/noah-isme/lingua-go-api/pkg/ai"
	"github.com/noah-isme/lingua-go-api/pkg/audio"
	"github.com/noah-isme/lingua-go-api/pkg/speech"
)

// FallbackSkillName labels the zero-score entry recorded when a session
// produced no scoreable answers and the caller supplied no label.
const FallbackSkillName = "GENERAL"

// ProfileInvalidator drops cached profile views after a score change.
type ProfileInvalidator interface {
	Invalidate(ctx context.Context, studentID uint)
}

// ScoringConfig carries the grading knobs.
type ScoringConfig struct {
	PassThreshold float64
}

// ScoringService grades stored answers, aggregates per-skill scores and
// derives the overall score and CEFR level.
type ScoringService interface {
	Finalize(ctx context.Context, sessionID uint, fallbackSkill string) (dto.ExamResultResponse, error)
	OverrideScore(ctx context.Context, sessionID uint, newScore float64) (dto.SessionResponse, error)
}

type scoringService struct {
	sessions    repository.ExamSessionRepository
	answers     repository.AnswerRepository
	questions   repository.QuestionRepository
	reports     repository.FeedbackReportRepository
	evaluator   ai.Evaluator
	transcriber speech.Transcriber
	audio       audio.Store
	progress    ProgressionService
	profiles    ProfileInvalidator
	notifier    ResultNotifier
	logger      zerolog.Logger
	now         func() time.Time
	config      ScoringConfig
}

// NewScoringService constructs the scoring engine. The evaluator and
// transcriber are injected so remote and fallback variants stay
// interchangeable.
func NewScoringService(sessions repository.ExamSessionRepository, answers repository.AnswerRepository, questions repository.QuestionRepository, reports repository.FeedbackReportRepository, evaluator ai.Evaluator, transcriber speech.Transcriber, audioStore audio.Store, progress ProgressionService, profiles ProfileInvalidator, notifier ResultNotifier, logger zerolog.Logger, cfg ScoringConfig) ScoringService {
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = 60
	}

	return &scoringService{
		sessions:    sessions,
		answers:     answers,
		questions:   questions,
		reports:     reports,
		evaluator:   evaluator,
		transcriber: transcriber,
		audio:       audioStore,
		progress:    progress,
		profiles:    profiles,
		notifier:    notifier,
		logger:      logger.With().Str("component", "scoring_service").Logger(),
		now:         time.Now,
		config:      cfg,
	}
}

// skillAggregate keeps the running pairwise average per skill category. Each
// new score averages with the running value rather than contributing to a
// true mean; this preserves the original grading behavior and is order
// dependent for three or more answers in one skill.
type skillAggregate struct {
	order  []string
	scores map[string]float64
}

func newSkillAggregate() *skillAggregate {
	return &skillAggregate{scores: make(map[string]float64)}
}

func (a *skillAggregate) add(skill string, score float64) {
	if current, ok := a.scores[skill]; ok {
		a.scores[skill] = (current + score) / 2
		return
	}
	a.order = append(a.order, skill)
	a.scores[skill] = score
}

func (a *skillAggregate) empty() bool {
	return len(a.order) == 0
}

func (a *skillAggregate) overall() float64 {
	if a.empty() {
		return 0
	}

	total := 0.0
	for _, skill := range a.order {
		total += a.scores[skill]
	}

	return math.Round(total/float64(len(a.order))*10) / 10
}

func (s *scoringService) Finalize(ctx context.Context, sessionID uint, fallbackSkill string) (dto.ExamResultResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/lingua-go-api/internal/service/scoring")
	ctx, span := tracer.Start(ctx, "scoring.finalize", trace.WithAttributes(
		attribute.Int64("scoring.session_id", int64(sessionID)),
	))
	defer span.End()

	start := s.now()

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "session_not_found")
			return dto.ExamResultResponse{}, ErrSessionNotFound
		}
		span.RecordError(err)
		return dto.ExamResultResponse{}, err
	}

	switch session.Status {
	case models.SessionStatusInProgress:
		// an expired-but-unmarked session cannot be finalized
		if session.IsPastDeadline(s.now()) {
			if err := s.sessions.UpdateStatus(ctx, session.ID, models.SessionStatusExpired); err != nil {
				return dto.ExamResultResponse{}, err
			}
			span.SetStatus(codes.Error, "session_expired")
			return dto.ExamResultResponse{}, ErrSessionExpired
		}
	case models.SessionStatusExpired:
		span.SetStatus(codes.Error, "session_expired")
		return dto.ExamResultResponse{}, ErrSessionExpired
	default:
		span.SetStatus(codes.Error, "session_not_active")
		return dto.ExamResultResponse{}, ErrSessionNotActive
	}

	answers, err := s.answers.ListBySession(ctx, session.ID)
	if err != nil {
		return dto.ExamResultResponse{}, err
	}

	aggregate := newSkillAggregate()
	var commentary []string
	var transcripts []string

	for i := range answers {
		answer := &answers[i]

		question, err := s.questions.GetByID(ctx, answer.QuestionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.logger.Warn().Uint("question_id", answer.QuestionID).Msg("answered question missing from catalog, skipping")
				continue
			}
			return dto.ExamResultResponse{}, err
		}

		score, feedback := s.gradeAnswer(ctx, session, answer, question)

		score = clampScore(score)
		correct := score >= s.config.PassThreshold
		answer.Score = &score
		answer.IsCorrect = &correct
		if err := s.answers.Update(ctx, answer); err != nil {
			return dto.ExamResultResponse{}, err
		}

		aggregate.add(question.SkillCategory, score)
		if feedback != "" {
			commentary = append(commentary, feedback)
		}
		if question.SkillCategory == models.SkillSpeaking && answer.Content != "" {
			transcripts = append(transcripts, answer.Content)
		}
	}

	if aggregate.empty() {
		if strings.TrimSpace(fallbackSkill) == "" {
			fallbackSkill = FallbackSkillName
		}
		aggregate.add(fallbackSkill, 0)
	}

	overall := aggregate.overall()
	level := models.LevelForScore(overall)
	now := s.now()

	session.OverallScore = overall
	session.DetectedLevel = &level
	session.Status = models.SessionStatusCompleted
	session.CompletedAt = &now
	session.LastActivity = now
	session.Feedback = composeFeedback(overall, level, commentary, transcripts)

	if err := s.sessions.Update(ctx, &session); err != nil {
		return dto.ExamResultResponse{}, err
	}

	s.persistReport(ctx, session, aggregate)

	for _, skill := range aggregate.order {
		if _, err := s.progress.ApplySkillScore(ctx, session.StudentID, skill, aggregate.scores[skill]); err != nil {
			return dto.ExamResultResponse{}, err
		}
	}

	if s.profiles != nil {
		s.profiles.Invalidate(ctx, session.StudentID)
	}
	if s.notifier != nil {
		s.notifier.SessionFinalized(ctx, ResultEvent{
			SessionID:     session.ID,
			StudentID:     session.StudentID,
			Skill:         session.Skill,
			OverallScore:  overall,
			DetectedLevel: level,
			FinalizedAt:   now,
		})
	}

	observability.ExamFinalizeDuration().Observe(s.now().Sub(start).Seconds())
	observability.ExamsFinalized().WithLabelValues(session.Skill, level).Inc()
	span.SetAttributes(
		attribute.Float64("scoring.overall", overall),
		attribute.String("scoring.level", level),
	)

	s.logger.Info().
		Uint("session_id", session.ID).
		Float64("overall_score", overall).
		Str("detected_level", level).
		Msg("exam finalized")

	return dto.ExamResultResponse{
		SessionID:     session.ID,
		OverallScore:  overall,
		DetectedLevel: level,
		Feedback:      session.Feedback,
		SkillScores:   aggregate.scores,
	}, nil
}

// gradeAnswer scores a single answer according to the question type. It never
// fails: evaluator and transcriber degradation resolve to a score.
func (s *scoringService) gradeAnswer(ctx context.Context, session models.ExamSession, answer *models.Answer, question models.Question) (float64, string) {
	correctOption := question.CorrectOption()

	if question.Type == models.QuestionTypeMultipleChoice {
		if answer.SelectedOptionID != nil && correctOption != nil && *answer.SelectedOptionID == correctOption.ID {
			return 100, ""
		}
		return 0, ""
	}

	// A flagged option on a non-choice question is the canonical fill-in text.
	if correctOption != nil {
		if normalizeText(answer.Content) == normalizeText(correctOption.Content) {
			return 100, ""
		}
		return 0, ""
	}

	text := answer.Content
	if question.SkillCategory == models.SkillSpeaking {
		if answer.AudioURL == nil || *answer.AudioURL == "" {
			// no recording submitted, treat as an empty answer
			return 0, ""
		}
		transcript, ok := s.transcribe(ctx, answer)
		if !ok {
			return 0, "Speech transcription was unavailable; the speaking answer could not be scored."
		}
		text = transcript
		answer.Content = transcript
	}

	result, err := s.evaluator.Evaluate(ctx, ai.EvaluationInput{
		Text:     text,
		Topic:    question.Prompt,
		Level:    session.Difficulty,
		Keywords: question.KeywordList(),
	})
	if err != nil {
		// the hybrid evaluator absorbs failures; this only guards a miswired
		// bare remote evaluator
		s.logger.Error().Err(err).Uint("question_id", question.ID).Msg("evaluation failed, scoring zero")
		return 0, ""
	}

	return result.Score, result.Feedback
}

// transcribe resolves the stored recording and runs speech-to-text. The
// second return value is false when no usable transcript exists.
func (s *scoringService) transcribe(ctx context.Context, answer *models.Answer) (string, bool) {
	if answer.AudioURL == nil || *answer.AudioURL == "" {
		return "", false
	}

	stream, err := s.audio.Resolve(ctx, *answer.AudioURL)
	if err != nil {
		s.logger.Warn().Err(err).Uint("answer_id", answer.ID).Msg("failed to resolve audio reference")
		return "", false
	}
	defer stream.Close()

	transcript, err := s.transcriber.Transcribe(ctx, *answer.AudioURL, stream)
	if err != nil {
		observability.TranscriptionFallbacks().Inc()
		s.logger.Warn().Err(err).Uint("answer_id", answer.ID).Msg("transcription unavailable")
		return "", false
	}

	return transcript, true
}

func (s *scoringService) OverrideScore(ctx context.Context, sessionID uint, newScore float64) (dto.SessionResponse, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrSessionNotFound
		}
		return dto.SessionResponse{}, err
	}

	newScore = clampScore(newScore)
	level := models.LevelForScore(newScore)
	session.OverallScore = newScore
	session.DetectedLevel = &level
	session.LastActivity = s.now()

	if err := s.sessions.Update(ctx, &session); err != nil {
		return dto.SessionResponse{}, err
	}

	skill := s.firstAnsweredSkill(ctx, session)
	if _, err := s.progress.ApplySkillScore(ctx, session.StudentID, skill, newScore); err != nil {
		return dto.SessionResponse{}, err
	}

	if s.profiles != nil {
		s.profiles.Invalidate(ctx, session.StudentID)
	}

	s.logger.Info().
		Uint("session_id", session.ID).
		Float64("score", newScore).
		Str("level", level).
		Msg("score overridden")

	return dto.NewSessionResponse(session), nil
}

// firstAnsweredSkill resolves the skill category of the session's first
// answered question, falling back to the generic label.
func (s *scoringService) firstAnsweredSkill(ctx context.Context, session models.ExamSession) string {
	answers, err := s.answers.ListBySession(ctx, session.ID)
	if err != nil || len(answers) == 0 {
		return FallbackSkillName
	}

	question, err := s.questions.GetByID(ctx, answers[0].QuestionID)
	if err != nil {
		return FallbackSkillName
	}

	return question.SkillCategory
}

func (s *scoringService) persistReport(ctx context.Context, session models.ExamSession, aggregate *skillAggregate) {
	breakdown, err := json.Marshal(aggregate.scores)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode score breakdown")
		return
	}

	report := models.FeedbackReport{
		SessionID:       session.ID,
		Recommendations: session.Feedback,
		OverallScore:    session.OverallScore,
		ScoreBreakdown:  breakdown,
		GeneratedAt:     s.now(),
	}

	if err := s.reports.Save(ctx, &report); err != nil {
		s.logger.Warn().Err(err).Uint("session_id", session.ID).Msg("failed to persist feedback report")
	}
}

func composeFeedback(overall float64, level string, commentary, transcripts []string) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Overall score %.1f, estimated level %s.", overall, level))

	for _, note := range commentary {
		builder.WriteString(" ")
		builder.WriteString(note)
	}

	for _, transcript := range transcripts {
		builder.WriteString(fmt.Sprintf(" Transcribed speech: %q.", transcript))
	}

	return builder.String()
}

func normalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
