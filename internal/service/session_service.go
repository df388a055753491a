package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/lingua-go-api/internal/dto"
	"github.com/noah-isme/lingua-go-api/internal/models"
	"github.com/noah-isme/lingua-go-api/internal/repository"
	"github.com/noah-isme/lingua-go-api/pkg/audio"
)

// ErrSessionNotFound indicates the exam session could not be located.
var ErrSessionNotFound = errors.New("exam session not found")

// ErrSessionNotActive indicates a write against a completed, abandoned or expired session.
var ErrSessionNotActive = errors.New("exam session is not active")

// ErrSessionExpired indicates the deadline passed; the session has been transitioned to EXPIRED.
var ErrSessionExpired = errors.New("exam session expired")

// ErrSkillAlreadyCompleted indicates the student already attempted this skill in the current cycle.
var ErrSkillAlreadyCompleted = errors.New("skill already completed this cycle")

// ErrStudentNotFound indicates the student account could not be located.
var ErrStudentNotFound = errors.New("student not found")

// ErrQuestionNotFound indicates the question is absent or not part of the session's set.
var ErrQuestionNotFound = errors.New("question not found")

// ErrUnsupportedAudioType indicates the uploaded recording is not an audio format.
var ErrUnsupportedAudioType = errors.New("unsupported audio type")

// SessionConfig carries the lifecycle knobs.
type SessionConfig struct {
	ExamDuration  time.Duration
	QuestionCount int
}

// SessionService owns exam session lifecycle: creation, resumption, answer
// ingestion and time-based state transitions.
type SessionService interface {
	StartOrResume(ctx context.Context, studentID uint, payload dto.StartExamRequest) (dto.SessionStartResponse, error)
	SubmitAnswer(ctx context.Context, sessionID uint, payload dto.AnswerSubmitRequest) (dto.AnswerResponse, error)
	AttachAudio(ctx context.Context, sessionID, questionID uint, filename string, file io.ReadSeeker) (dto.AnswerResponse, error)
	Abandon(ctx context.Context, sessionID uint) error
	Detail(ctx context.Context, sessionID uint) (dto.SessionDetailResponse, error)
	History(ctx context.Context, studentID uint, limit int) ([]dto.SessionResponse, error)
	Remaining(ctx context.Context, sessionID uint) (time.Duration, string, error)
}

type sessionService struct {
	sessions  repository.ExamSessionRepository
	answers   repository.AnswerRepository
	questions repository.QuestionRepository
	users     repository.UserRepository
	progress  ProgressionService
	audio     audio.Store
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
	config    SessionConfig
}

// NewSessionService constructs the lifecycle manager.
func NewSessionService(sessions repository.ExamSessionRepository, answers repository.AnswerRepository, questions repository.QuestionRepository, users repository.UserRepository, progress ProgressionService, audioStore audio.Store, validate *validator.Validate, logger zerolog.Logger, cfg SessionConfig) SessionService {
	if cfg.ExamDuration <= 0 {
		cfg.ExamDuration = 20 * time.Minute
	}
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = 10
	}

	return &sessionService{
		sessions:  sessions,
		answers:   answers,
		questions: questions,
		users:     users,
		progress:  progress,
		audio:     audioStore,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "session_service").Logger(),
		now:       time.Now,
		config:    cfg,
	}
}

func (s *sessionService) StartOrResume(ctx context.Context, studentID uint, payload dto.StartExamRequest) (dto.SessionStartResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionStartResponse{}, err
	}

	user, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionStartResponse{}, ErrStudentNotFound
		}
		return dto.SessionStartResponse{}, err
	}
	if !user.IsActive {
		return dto.SessionStartResponse{}, ErrStudentNotFound
	}

	if err := s.progress.EnsureSkillAvailable(ctx, studentID, payload.Skill); err != nil {
		return dto.SessionStartResponse{}, err
	}

	active, err := s.sessions.GetActiveByStudent(ctx, studentID)
	switch {
	case err == nil:
		expired, expireErr := s.expireIfDue(ctx, &active)
		if expireErr != nil {
			return dto.SessionStartResponse{}, expireErr
		}
		if !expired {
			questions, loadErr := s.loadSessionQuestions(ctx, active)
			if loadErr != nil {
				return dto.SessionStartResponse{}, loadErr
			}

			s.logger.Info().Uint("session_id", active.ID).Uint("student_id", studentID).Msg("resuming in-progress session")

			return dto.SessionStartResponse{
				Session:   dto.NewSessionResponse(active),
				Questions: dto.NewExamQuestionResponseSlice(questions),
				Resumed:   true,
			}, nil
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// no active session, fall through to create one
	default:
		return dto.SessionStartResponse{}, err
	}

	questions, err := s.questions.DrawBySkillAndDifficulty(ctx, payload.Skill, payload.Difficulty, s.config.QuestionCount)
	if err != nil {
		return dto.SessionStartResponse{}, err
	}

	questionIDs := make([]uint, 0, len(questions))
	for _, question := range questions {
		questionIDs = append(questionIDs, question.ID)
	}

	now := s.now()
	session := models.ExamSession{
		StudentID:    studentID,
		Skill:        payload.Skill,
		Difficulty:   payload.Difficulty,
		StartTime:    now,
		EndTime:      now.Add(s.config.ExamDuration),
		LastActivity: now,
		Status:       models.SessionStatusInProgress,
		QuestionIDs:  questionIDs,
	}

	if err := s.sessions.Create(ctx, &session); err != nil {
		return dto.SessionStartResponse{}, err
	}

	s.logger.Info().
		Uint("session_id", session.ID).
		Uint("student_id", studentID).
		Str("skill", payload.Skill).
		Str("difficulty", payload.Difficulty).
		Int("questions", len(questions)).
		Msg("exam session started")

	return dto.SessionStartResponse{
		Session:   dto.NewSessionResponse(session),
		Questions: dto.NewExamQuestionResponseSlice(questions),
	}, nil
}

func (s *sessionService) SubmitAnswer(ctx context.Context, sessionID uint, payload dto.AnswerSubmitRequest) (dto.AnswerResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AnswerResponse{}, err
	}

	session, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return dto.AnswerResponse{}, err
	}

	if !s.sessionHasQuestion(session, payload.QuestionID) {
		return dto.AnswerResponse{}, ErrQuestionNotFound
	}

	answer := s.mergeAnswer(ctx, session.ID, payload.QuestionID)
	answer.SelectedOptionID = payload.SelectedOptionID
	if payload.Text != nil {
		answer.Content = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Text))
	}
	if payload.ListenCount != nil {
		answer.ListenCount = *payload.ListenCount
	}

	if err := s.answers.Upsert(ctx, &answer, s.now()); err != nil {
		return dto.AnswerResponse{}, err
	}

	return dto.NewAnswerResponse(answer), nil
}

func (s *sessionService) AttachAudio(ctx context.Context, sessionID, questionID uint, filename string, file io.ReadSeeker) (dto.AnswerResponse, error) {
	session, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return dto.AnswerResponse{}, err
	}

	if !s.sessionHasQuestion(session, questionID) {
		return dto.AnswerResponse{}, ErrQuestionNotFound
	}

	if err := validateAudioType(file); err != nil {
		return dto.AnswerResponse{}, err
	}

	ref, err := s.audio.Save(ctx, filename, file)
	if err != nil {
		return dto.AnswerResponse{}, fmt.Errorf("failed to store audio: %w", err)
	}

	answer := s.mergeAnswer(ctx, session.ID, questionID)
	answer.AudioURL = &ref

	if err := s.answers.Upsert(ctx, &answer, s.now()); err != nil {
		return dto.AnswerResponse{}, err
	}

	s.logger.Info().Uint("session_id", sessionID).Uint("question_id", questionID).Msg("audio attached to answer")

	return dto.NewAnswerResponse(answer), nil
}

func (s *sessionService) Abandon(ctx context.Context, sessionID uint) error {
	session, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return err
	}

	return s.sessions.UpdateStatus(ctx, session.ID, models.SessionStatusAbandoned)
}

func (s *sessionService) Detail(ctx context.Context, sessionID uint) (dto.SessionDetailResponse, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionDetailResponse{}, ErrSessionNotFound
		}
		return dto.SessionDetailResponse{}, err
	}

	// Reads also trigger the lazy expiry transition so stale sessions are
	// reported as EXPIRED on the very next access.
	if _, err := s.expireIfDue(ctx, &session); err != nil {
		return dto.SessionDetailResponse{}, err
	}

	return dto.NewSessionDetailResponse(session), nil
}

func (s *sessionService) History(ctx context.Context, studentID uint, limit int) ([]dto.SessionResponse, error) {
	sessions, err := s.sessions.ListByStudent(ctx, studentID, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		if _, err := s.expireIfDue(ctx, &sessions[i]); err != nil {
			return nil, err
		}
		responses = append(responses, dto.NewSessionResponse(sessions[i]))
	}

	return responses, nil
}

func (s *sessionService) Remaining(ctx context.Context, sessionID uint) (time.Duration, string, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, "", ErrSessionNotFound
		}
		return 0, "", err
	}

	if _, err := s.expireIfDue(ctx, &session); err != nil {
		return 0, "", err
	}

	remaining := session.EndTime.Sub(s.now())
	if remaining < 0 {
		remaining = 0
	}

	return remaining, session.Status, nil
}

// activeSession loads the session and enforces the write gates shared by
// answer submission, audio upload and abandon.
func (s *sessionService) activeSession(ctx context.Context, sessionID uint) (models.ExamSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ExamSession{}, ErrSessionNotFound
		}
		return models.ExamSession{}, err
	}

	if !session.IsActive() {
		return models.ExamSession{}, ErrSessionNotActive
	}

	expired, err := s.expireIfDue(ctx, &session)
	if err != nil {
		return models.ExamSession{}, err
	}
	if expired {
		return models.ExamSession{}, ErrSessionExpired
	}

	return session, nil
}

// expireIfDue performs the lazy IN_PROGRESS -> EXPIRED transition.
func (s *sessionService) expireIfDue(ctx context.Context, session *models.ExamSession) (bool, error) {
	if !session.IsActive() || !session.IsPastDeadline(s.now()) {
		return false, nil
	}

	if err := s.sessions.UpdateStatus(ctx, session.ID, models.SessionStatusExpired); err != nil {
		return false, err
	}
	session.Status = models.SessionStatusExpired

	s.logger.Info().Uint("session_id", session.ID).Msg("session expired")

	return true, nil
}

func (s *sessionService) sessionHasQuestion(session models.ExamSession, questionID uint) bool {
	for _, id := range session.QuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}

// mergeAnswer loads any stored answer for the pair so an upsert preserves
// fields the current request does not touch.
func (s *sessionService) mergeAnswer(ctx context.Context, sessionID, questionID uint) models.Answer {
	existing, err := s.answers.GetBySessionAndQuestion(ctx, sessionID, questionID)
	if err == nil {
		return existing
	}

	return models.Answer{SessionID: sessionID, QuestionID: questionID}
}

// loadSessionQuestions resolves the frozen question draw in stored order.
func (s *sessionService) loadSessionQuestions(ctx context.Context, session models.ExamSession) ([]models.Question, error) {
	questions, err := s.questions.GetByIDs(ctx, session.QuestionIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]models.Question, len(questions))
	for _, question := range questions {
		byID[question.ID] = question
	}

	ordered := make([]models.Question, 0, len(session.QuestionIDs))
	for _, id := range session.QuestionIDs {
		if question, ok := byID[id]; ok {
			ordered = append(ordered, question)
		}
	}

	return ordered, nil
}

func validateAudioType(file io.ReadSeeker) error {
	mime, err := mimetype.DetectReader(file)
	if err != nil {
		return fmt.Errorf("failed to detect audio type: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind audio stream: %w", err)
	}

	allowed := []string{"audio/mpeg", "audio/wav", "audio/ogg", "audio/webm", "video/webm", "audio/mp4"}
	for _, a := range allowed {
		if mime.Is(a) {
			return nil
		}
	}
	if strings.HasPrefix(mime.String(), "audio/") {
		return nil
	}

	return fmt.Errorf("%w: %s", ErrUnsupportedAudioType, mime.String())
}
