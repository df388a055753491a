package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/lingua-go-api/internal/config"
	"github.com/noah-isme/lingua-go-api/internal/dto"
	"github.com/noah-isme/lingua-go-api/internal/handler"
	"github.com/noah-isme/lingua-go-api/internal/middleware"
	"github.com/noah-isme/lingua-go-api/internal/models"
	"github.com/noah-isme/lingua-go-api/internal/repository"
	"github.com/noah-isme/lingua-go-api/internal/router"
	"github.com/noah-isme/lingua-go-api/internal/service"
	"github.com/noah-isme/lingua-go-api/pkg/ai"
	"github.com/noah-isme/lingua-go-api/pkg/speech"
)

type integrationAudioStore struct {
	files map[string][]byte
}

func (s *integrationAudioStore) Save(_ context.Context, name string, audio io.Reader) (string, error) {
	data, err := io.ReadAll(audio)
	if err != nil {
		return "", err
	}
	if s.files == nil {
		s.files = make(map[string][]byte)
	}
	s.files[name] = data
	return "mem://" + name, nil
}

func (s *integrationAudioStore) Resolve(_ context.Context, ref string) (io.ReadCloser, error) {
	name := strings.TrimPrefix(ref, "mem://")
	return io.NopCloser(bytes.NewReader(s.files[name])), nil
}

func setupExamApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:exam_e2e_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.StudentProfile{},
		&models.Question{}, &models.QuestionOption{},
		&models.ExamSession{}, &models.Answer{},
		&models.LevelRecord{}, &models.FeedbackReport{},
	))
	for _, table := range []string{"users", "student_profiles", "questions", "question_options", "exam_sessions", "answers", "level_records", "feedback_reports"} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	sessionRepo := repository.NewExamSessionRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	userRepo := repository.NewUserRepository(db)
	levelRepo := repository.NewLevelRecordRepository(db)
	reportRepo := repository.NewFeedbackReportRepository(db)

	store := &integrationAudioStore{}
	evaluator := ai.NewHybridEvaluator(nil, time.Second, logger)
	transcriber := speech.NewStaticTranscriber()

	progressionService := service.NewProgressionService(levelRepo, logger)
	profileService := service.NewProfileService(levelRepo, sessionRepo, nil, 0, logger)
	notifier := service.NewResultNotifier(nil, nil, "lingua", logger)
	sessionService := service.NewSessionService(sessionRepo, answerRepo, questionRepo, userRepo, progressionService, store, validate, logger, service.SessionConfig{
		ExamDuration:  20 * time.Minute,
		QuestionCount: 2,
	})
	scoringService := service.NewScoringService(sessionRepo, answerRepo, questionRepo, reportRepo, evaluator, transcriber, store, progressionService, profileService, notifier, logger, service.ScoringConfig{PassThreshold: 60})
	adminService := service.NewAdminExamService(questionRepo, scoringService, validate, logger)

	examHandler := handler.NewExamHandler(sessionService, scoringService, logger)
	timerHandler := handler.NewExamTimerHandler(sessionService, time.Second, logger)
	profileHandler := handler.NewProfileHandler(profileService, logger)
	adminHandler := handler.NewAdminExamHandler(adminService, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})

	router.Register(app, config.Config{AppName: "Test", AppEnv: "test"}, router.Dependencies{
		ExamHandler:      examHandler,
		ExamTimerHandler: timerHandler,
		ProfileHandler:   profileHandler,
		AdminExamHandler: adminHandler,
		JWTMiddleware: func(c *fiber.Ctx) error {
			if strings.HasPrefix(c.Path(), "/api/admin") {
				c.Locals("user_id", uint(9001))
				c.Locals("user_role", "admin")
			} else {
				c.Locals("user_id", uint(1))
				c.Locals("user_role", "student")
			}
			return c.Next()
		},
	})

	return app, db
}

func decode[T any](t *testing.T, resp *http.Response, target *T) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target))
}

func postJSON(t *testing.T, app *fiber.App, method, path string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestExamEndToEndFlow(t *testing.T) {
	app, db := setupExamApp(t)

	student := models.User{Username: "siti", Email: "siti@example.com", PasswordHash: "x", Role: models.RoleStudent, IsActive: true}
	require.NoError(t, db.Create(&student).Error)
	require.Equal(t, uint(1), student.ID)

	// Step 1: admin seeds the question catalog
	multipleChoice := dto.QuestionCreateRequest{
		Prompt:        "Which city is the capital of France?",
		Type:          models.QuestionTypeMultipleChoice,
		Difficulty:    "A2",
		SkillCategory: models.SkillReading,
		Options: []dto.OptionCreateRequest{
			{Content: "Paris", IsCorrect: true, Position: 0},
			{Content: "Lyon", Position: 1},
			{Content: "Nice", Position: 2},
		},
	}
	resp := postJSON(t, app, http.MethodPost, "/api/admin/exams/questions", multipleChoice)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var createdMC struct {
		Success bool                      `json:"success"`
		Data    dto.AdminQuestionResponse `json:"data"`
	}
	decode(t, resp, &createdMC)
	require.True(t, createdMC.Success)
	require.Len(t, createdMC.Data.Options, 3)

	var correctOptionID uint
	for _, option := range createdMC.Data.Options {
		if option.IsCorrect {
			correctOptionID = option.ID
		}
	}
	require.NotZero(t, correctOptionID)

	fillIn := dto.QuestionCreateRequest{
		Prompt:        "The capital of France is ____.",
		Type:          models.QuestionTypeFillIn,
		Difficulty:    "A2",
		SkillCategory: models.SkillReading,
		Options: []dto.OptionCreateRequest{
			{Content: "Paris", IsCorrect: true},
		},
	}
	resp = postJSON(t, app, http.MethodPost, "/api/admin/exams/questions", fillIn)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var createdFillIn struct {
		Success bool                      `json:"success"`
		Data    dto.AdminQuestionResponse `json:"data"`
	}
	decode(t, resp, &createdFillIn)
	require.True(t, createdFillIn.Success)

	// Step 2: student starts a reading exam and receives the frozen draw
	resp = postJSON(t, app, http.MethodPost, "/api/v1/exams", dto.StartExamRequest{Skill: models.SkillReading, Difficulty: "A2"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var started struct {
		Success bool                     `json:"success"`
		Data    dto.SessionStartResponse `json:"data"`
	}
	decode(t, resp, &started)
	require.True(t, started.Success)
	require.False(t, started.Data.Resumed)
	require.Len(t, started.Data.Questions, 2)
	require.Equal(t, "IN_PROGRESS", started.Data.Session.Status)

	sessionID := strconv.Itoa(int(started.Data.Session.ID))

	// The student view never exposes the answer key
	for _, question := range started.Data.Questions {
		raw, err := json.Marshal(question)
		require.NoError(t, err)
		require.NotContains(t, string(raw), "is_correct")
	}

	// Step 3: starting again resumes the same session with the same draw
	resp = postJSON(t, app, http.MethodPost, "/api/v1/exams", dto.StartExamRequest{Skill: models.SkillReading, Difficulty: "A2"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var resumed struct {
		Success bool                     `json:"success"`
		Data    dto.SessionStartResponse `json:"data"`
	}
	decode(t, resp, &resumed)
	require.True(t, resumed.Data.Resumed)
	require.Equal(t, started.Data.Session.ID, resumed.Data.Session.ID)

	// Step 4: student answers both questions correctly
	resp = postJSON(t, app, http.MethodPost, "/api/v1/exams/"+sessionID+"/answers", dto.AnswerSubmitRequest{
		QuestionID:       createdMC.Data.ID,
		SelectedOptionID: &correctOptionID,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	text := "  paris "
	resp = postJSON(t, app, http.MethodPost, "/api/v1/exams/"+sessionID+"/answers", dto.AnswerSubmitRequest{
		QuestionID: createdFillIn.Data.ID,
		Text:       &text,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Step 5: finalize scores the session
	resp = postJSON(t, app, http.MethodPost, "/api/v1/exams/"+sessionID+"/finalize", fiber.Map{})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var finalized struct {
		Success bool                   `json:"success"`
		Data    dto.ExamResultResponse `json:"data"`
	}
	decode(t, resp, &finalized)
	require.True(t, finalized.Success)
	require.Equal(t, 100.0, finalized.Data.OverallScore)
	require.Equal(t, "C1", finalized.Data.DetectedLevel)
	require.Equal(t, 100.0, finalized.Data.SkillScores[models.SkillReading])

	// A second finalize hits the completed session
	resp = postJSON(t, app, http.MethodPost, "/api/v1/exams/"+sessionID+"/finalize", fiber.Map{})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Step 6: the level profile reflects the finished skill
	profileReq := httptest.NewRequest(http.MethodGet, "/api/v1/profiles/levels", nil)
	profileResp, err := app.Test(profileReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, profileResp.StatusCode)

	var profile struct {
		Success bool                     `json:"success"`
		Data    dto.LevelProfileResponse `json:"data"`
	}
	decode(t, profileResp, &profile)
	require.True(t, profile.Success)
	require.NotNil(t, profile.Data.ReadingLevel)
	require.Equal(t, "C1", *profile.Data.ReadingLevel)
	require.Equal(t, "A2", profile.Data.OverallLevel)
	require.NotEmpty(t, profile.Data.RecentSessions)

	// Step 7: admin overrides the score; the level record follows
	resp = postJSON(t, app, http.MethodPatch, "/api/admin/exams/sessions/"+sessionID+"/score", dto.ScoreOverrideRequest{Score: 55})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var overridden struct {
		Success bool                `json:"success"`
		Data    dto.SessionResponse `json:"data"`
	}
	decode(t, resp, &overridden)
	require.True(t, overridden.Success)
	require.Equal(t, 55.0, overridden.Data.OverallScore)
	require.NotNil(t, overridden.Data.DetectedLevel)
	require.Equal(t, "B1", *overridden.Data.DetectedLevel)

	var record models.LevelRecord
	require.NoError(t, db.Where("student_id = ?", student.ID).First(&record).Error)
	require.NotNil(t, record.ReadingLevel)
	require.Equal(t, "B1", *record.ReadingLevel)

	// Step 8: admin deactivates a question so later draws skip it
	deactivateReq := httptest.NewRequest(http.MethodDelete, "/api/admin/exams/questions/"+strconv.Itoa(int(createdMC.Data.ID)), nil)
	deactivateResp, err := app.Test(deactivateReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, deactivateResp.StatusCode)
	deactivateResp.Body.Close()

	listReq := httptest.NewRequest(http.MethodGet, "/api/admin/exams/questions?skill=reading&active_only=true", nil)
	listResp, err := app.Test(listReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, listResp.StatusCode)

	var listing struct {
		Success bool                        `json:"success"`
		Data    []dto.AdminQuestionResponse `json:"data"`
	}
	decode(t, listResp, &listing)
	require.True(t, listing.Success)
	require.Len(t, listing.Data, 1)
	require.Equal(t, createdFillIn.Data.ID, listing.Data[0].ID)
}
