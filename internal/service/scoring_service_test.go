package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/lingua-go-api/internal/models"
	"github.com/noah-isme/lingua-go-api/internal/repository"
	"github.com/noah-isme/lingua-go-api/pkg/ai"
	"github.com/noah-isme/lingua-go-api/pkg/speech"
)

// mappedEvaluator returns a fixed score per answer text so aggregation
// behavior can be asserted exactly.
type mappedEvaluator struct {
	scores map[string]float64
}

func (e mappedEvaluator) Evaluate(_ context.Context, input ai.EvaluationInput) (ai.EvaluationResult, error) {
	if score, ok := e.scores[input.Text]; ok {
		return ai.EvaluationResult{Score: score, Feedback: "graded"}, nil
	}
	return ai.EvaluationResult{Score: 42}, nil
}

type fixedTranscriber struct {
	transcript string
	err        error
}

func (t fixedTranscriber) Transcribe(context.Context, string, io.Reader) (string, error) {
	return t.transcript, t.err
}

type recordingNotifier struct {
	events []ResultEvent
}

func (n *recordingNotifier) SessionFinalized(_ context.Context, event ResultEvent) {
	n.events = append(n.events, event)
}

type scoringFixture struct {
	db       *gorm.DB
	svc      *scoringService
	notifier *recordingNotifier
	store    *memoryAudioStore
	student  models.User
}

func setupScoringFixture(t *testing.T, evaluator ai.Evaluator, transcriber speech.Transcriber) *scoringFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:scoring_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Question{}, &models.QuestionOption{},
		&models.ExamSession{}, &models.Answer{}, &models.LevelRecord{},
		&models.FeedbackReport{},
	))
	for _, table := range []string{"answers", "exam_sessions", "question_options", "questions", "level_records", "feedback_reports", "users"} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}

	student := models.User{Username: "budi", Email: "budi@example.com", PasswordHash: "x", Role: models.RoleStudent, IsActive: true}
	require.NoError(t, db.Create(&student).Error)

	store := newMemoryAudioStore()
	notifier := &recordingNotifier{}
	levelRepo := repository.NewLevelRecordRepository(db)

	svc := NewScoringService(
		repository.NewExamSessionRepository(db),
		repository.NewAnswerRepository(db),
		repository.NewQuestionRepository(db),
		repository.NewFeedbackReportRepository(db),
		evaluator,
		transcriber,
		store,
		NewProgressionService(levelRepo, zerolog.Nop()),
		nil,
		notifier,
		zerolog.Nop(),
		ScoringConfig{PassThreshold: 60},
	).(*scoringService)

	return &scoringFixture{db: db, svc: svc, notifier: notifier, store: store, student: student}
}

func (fx *scoringFixture) createQuestion(t *testing.T, question models.Question) models.Question {
	t.Helper()
	require.NoError(t, fx.db.Create(&question).Error)
	return question
}

func (fx *scoringFixture) createSession(t *testing.T, skill string, questionIDs []uint) models.ExamSession {
	t.Helper()
	now := time.Now()
	session := models.ExamSession{
		StudentID:    fx.student.ID,
		Skill:        skill,
		Difficulty:   "B1",
		StartTime:    now,
		EndTime:      now.Add(20 * time.Minute),
		LastActivity: now,
		Status:       models.SessionStatusInProgress,
		QuestionIDs:  questionIDs,
	}
	require.NoError(t, fx.db.Create(&session).Error)
	return session
}

func (fx *scoringFixture) createAnswer(t *testing.T, answer models.Answer) models.Answer {
	t.Helper()
	require.NoError(t, fx.db.Create(&answer).Error)
	return answer
}

func TestFinalizeGradesObjectiveQuestions(t *testing.T) {
	fx := setupScoringFixture(t, mappedEvaluator{}, fixedTranscriber{})
	ctx := context.Background()

	choice := fx.createQuestion(t, models.Question{
		Prompt: "Capital of France?", Type: models.QuestionTypeMultipleChoice,
		Difficulty: "B1", SkillCategory: models.SkillReading, IsActive: true,
		Options: []models.QuestionOption{
			{Content: "Paris", IsCorrect: true, Position: 0},
			{Content: "Lyon", Position: 1},
		},
	})
	fillIn := fx.createQuestion(t, models.Question{
		Prompt: "Capital of France is ____.", Type: models.QuestionTypeFillIn,
		Difficulty: "B1", SkillCategory: models.SkillReading, IsActive: true,
		Options: []models.QuestionOption{
			{Content: "Paris", IsCorrect: true, Position: 0},
		},
	})

	session := fx.createSession(t, models.SkillReading, []uint{choice.ID, fillIn.ID})
	fx.createAnswer(t, models.Answer{SessionID: session.ID, QuestionID: choice.ID, SelectedOptionID: &choice.Options[0].ID})
	// case and surrounding whitespace are ignored for fill-in matching
	fx.createAnswer(t, models.Answer{SessionID: session.ID, QuestionID: fillIn.ID, Content: "  paris "})

	result, err := fx.svc.Finalize(ctx, session.ID, "")
	require.NoError(t, err)
	require.Equal(t, 100.0, result.SkillScores[models.SkillReading])
	require.Equal(t, 100.0, result.OverallScore)
	require.Equal(t, "C1", result.DetectedLevel)

	var stored models.ExamSession
	require.NoError(t, fx.db.First(&stored, session.ID).Error)
	require.Equal(t, models.SessionStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)

	require.Len(t, fx.notifier.events, 1)
	require.Equal(t, session.ID, fx.notifier.events[0].SessionID)
}

func TestFinalizeWrongObjectiveAnswersScoreZero(t *testing.T) {
	fx := setupScoringFixture(t, mappedEvaluator{}, fixedTranscriber{})
	ctx := context.Background()

	choice := fx.createQuestion(t, models.Question{
		Prompt: "Capital of France?", Type: models.QuestionTypeMultipleChoice,
		Difficulty: "B1", SkillCategory: models.SkillReading, IsActive: true,
		Options: []models.QuestionOption{
			{Content: "Paris", IsCorrect: true, Position: 0},
			{Content: "Lyon", Position: 1},
		},
	})

	session := fx.createSession(t, models.SkillReading, []uint{choice.ID})
	fx.createAnswer(t, models.Answer{SessionID: session.ID, QuestionID: choice.ID, SelectedOptionID: &choice.Options[1].ID})

	result, err := fx.svc.Finalize(ctx, session.ID, "")
	require.NoError(t, err)
	require.Equal(t, 0.0, result.OverallScore)
	require.Equal(t, "A1", result.DetectedLevel)
}

func TestFinalizeAveragesPairwisePerSkill(t *testing.T) {
	evaluator := mappedEvaluator{scores: map[string]float64{
		"first essay":  100,
		"second essay": 50,
		"third essay":  30,
	}}
	fx := setupScoringFixture(t, evaluator, fixedTranscriber{})
	ctx := context.Background()

	var ids []uint
	texts := []string{"first essay", "second essay", "third essay"}
	for _, text := range texts {
		question := fx.createQuestion(t, models.Question{
			Prompt: "Write about " + text, Type: models.QuestionTypeWriting,
			Difficulty: "B1", SkillCategory: models.SkillWriting, IsActive: true,
		})
		ids = append(ids, question.ID)
	}

	session := fx.createSession(t, models.SkillWriting, ids)
	for i, text := range texts {
		fx.createAnswer(t, models.Answer{SessionID: session.ID, QuestionID: ids[i], Content: text})
	}

	result, err := fx.svc.Finalize(ctx, session.ID, "")
	require.NoError(t, err)

	// running pairwise average: ((100+50)/2 + 30) / 2
	require.Equal(t, 52.5, result.SkillScores[models.SkillWriting])
	require.Equal(t, 52.5, result.OverallScore)
	require.Equal(t, "B1", result.DetectedLevel)
}

func TestFinalizeWithoutAnswersRecordsFallbackSkill(t *testing.T) {
	fx := setupScoringFixture(t, mappedEvaluator{}, fixedTranscriber{})
	ctx := context.Background()

	session := fx.createSession(t, models.SkillReading, nil)

	result, err := fx.svc.Finalize(ctx, session.ID, "")
	require.NoError(t, err)
	require.Equal(t, 0.0, result.OverallScore)
	require.Equal(t, "A1", result.DetectedLevel)
	require.Equal(t, map[string]float64{FallbackSkillName: 0}, result.SkillScores)
}

func TestFinalizeStatusGates(t *testing.T) {
	fx := setupScoringFixture(t, mappedEvaluator{}, fixedTranscriber{})
	ctx := context.Background()

	// past-deadline sessions are marked expired and refuse finalization
	late := fx.createSession(t, models.SkillReading, nil)
	require.NoError(t, fx.db.Model(&late).Update("end_time", time.Now().Add(-time.Minute)).Error)
	_, err := fx.svc.Finalize(ctx, late.ID, "")
	require.ErrorIs(t, err, ErrSessionExpired)

	var stored models.ExamSession
	require.NoError(t, fx.db.First(&stored, late.ID).Error)
	require.Equal(t, models.SessionStatusExpired, stored.Status)

	// finalize is not idempotent: a completed session refuses a second pass
	done := fx.createSession(t, models.SkillReading, nil)
	_, err = fx.svc.Finalize(ctx, done.ID, "")
	require.NoError(t, err)
	_, err = fx.svc.Finalize(ctx, done.ID, "")
	require.ErrorIs(t, err, ErrSessionNotActive)

	_, err = fx.svc.Finalize(ctx, 987654, "")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFinalizeSpeakingUsesTranscript(t *testing.T) {
	evaluator := mappedEvaluator{scores: map[string]float64{"my hometown is beautiful": 80}}
	fx := setupScoringFixture(t, evaluator, fixedTranscriber{transcript: "my hometown is beautiful"})
	ctx := context.Background()

	question := fx.createQuestion(t, models.Question{
		Prompt: "Talk about your hometown.", Type: models.QuestionTypeSpeaking,
		Difficulty: "B1", SkillCategory: models.SkillSpeaking, IsActive: true,
	})

	ref, err := fx.store.Save(ctx, "answer.wav", bytes.NewReader(wavBytes()))
	require.NoError(t, err)

	session := fx.createSession(t, models.SkillSpeaking, []uint{question.ID})
	fx.createAnswer(t, models.Answer{SessionID: session.ID, QuestionID: question.ID, AudioURL: &ref})

	result, err := fx.svc.Finalize(ctx, session.ID, "")
	require.NoError(t, err)
	require.Equal(t, 80.0, result.SkillScores[models.SkillSpeaking])
	require.Contains(t, result.Feedback, "my hometown is beautiful")

	var answer models.Answer
	require.NoError(t, fx.db.Where("session_id = ?", session.ID).First(&answer).Error)
	require.Equal(t, "my hometown is beautiful", answer.Content)
}

func TestFinalizeSpeakingTranscriptionFailureScoresZero(t *testing.T) {
	fx := setupScoringFixture(t, mappedEvaluator{}, fixedTranscriber{err: speech.ErrUnavailable})
	ctx := context.Background()

	question := fx.createQuestion(t, models.Question{
		Prompt: "Talk about your hometown.", Type: models.QuestionTypeSpeaking,
		Difficulty: "B1", SkillCategory: models.SkillSpeaking, IsActive: true,
	})

	ref, err := fx.store.Save(ctx, "answer.wav", bytes.NewReader(wavBytes()))
	require.NoError(t, err)

	session := fx.createSession(t, models.SkillSpeaking, []uint{question.ID})
	fx.createAnswer(t, models.Answer{SessionID: session.ID, QuestionID: question.ID, AudioURL: &ref})

	result, err := fx.svc.Finalize(ctx, session.ID, "")
	require.NoError(t, err)
	require.Equal(t, 0.0, result.SkillScores[models.SkillSpeaking])
	require.Contains(t, result.Feedback, "transcription")
}

func TestFinalizePersistsFeedbackReport(t *testing.T) {
	fx := setupScoringFixture(t, mappedEvaluator{}, fixedTranscriber{})
	ctx := context.Background()

	choice := fx.createQuestion(t, models.Question{
		Prompt: "Capital of France?", Type: models.QuestionTypeMultipleChoice,
		Difficulty: "B1", SkillCategory: models.SkillReading, IsActive: true,
		Options: []models.QuestionOption{{Content: "Paris", IsCorrect: true, Position: 0}},
	})

	session := fx.createSession(t, models.SkillReading, []uint{choice.ID})
	fx.createAnswer(t, models.Answer{SessionID: session.ID, QuestionID: choice.ID, SelectedOptionID: &choice.Options[0].ID})

	_, err := fx.svc.Finalize(ctx, session.ID, "")
	require.NoError(t, err)

	var report models.FeedbackReport
	require.NoError(t, fx.db.Where("session_id = ?", session.ID).First(&report).Error)
	require.Equal(t, 100.0, report.OverallScore)

	breakdown := map[string]float64{}
	require.NoError(t, json.Unmarshal(report.ScoreBreakdown, &breakdown))
	require.Equal(t, 100.0, breakdown[models.SkillReading])
}

func TestOverrideScoreClampsAndReappliesProgression(t *testing.T) {
	fx := setupScoringFixture(t, mappedEvaluator{}, fixedTranscriber{})
	ctx := context.Background()

	choice := fx.createQuestion(t, models.Question{
		Prompt: "Capital of France?", Type: models.QuestionTypeMultipleChoice,
		Difficulty: "B1", SkillCategory: models.SkillListening, IsActive: true,
		Options: []models.QuestionOption{{Content: "Paris", IsCorrect: true, Position: 0}},
	})
	session := fx.createSession(t, models.SkillListening, []uint{choice.ID})
	fx.createAnswer(t, models.Answer{SessionID: session.ID, QuestionID: choice.ID, SelectedOptionID: &choice.Options[0].ID})

	_, err := fx.svc.Finalize(ctx, session.ID, "")
	require.NoError(t, err)

	updated, err := fx.svc.OverrideScore(ctx, session.ID, 150)
	require.NoError(t, err)
	require.Equal(t, 100.0, updated.OverallScore)
	require.NotNil(t, updated.DetectedLevel)
	require.Equal(t, "C1", *updated.DetectedLevel)

	var record models.LevelRecord
	require.NoError(t, fx.db.Where("student_id = ?", fx.student.ID).First(&record).Error)
	require.NotNil(t, record.ListeningLevel)
	require.Equal(t, "C1", *record.ListeningLevel)

	_, err = fx.svc.OverrideScore(ctx, 424242, 50)
	require.ErrorIs(t, err, ErrSessionNotFound)
}
