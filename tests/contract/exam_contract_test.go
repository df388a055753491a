package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lingua-go-api/internal/dto"
	"github.com/noah-isme/lingua-go-api/internal/handler"
)

type stubScoringService struct {
	result dto.ExamResultResponse
}

func (s stubScoringService) Finalize(context.Context, uint, string) (dto.ExamResultResponse, error) {
	return s.result, nil
}

func (s stubScoringService) OverrideScore(context.Context, uint, float64) (dto.SessionResponse, error) {
	return dto.SessionResponse{}, nil
}

type stubSessionService struct{}

func (stubSessionService) StartOrResume(context.Context, uint, dto.StartExamRequest) (dto.SessionStartResponse, error) {
	return dto.SessionStartResponse{}, nil
}

func (stubSessionService) SubmitAnswer(context.Context, uint, dto.AnswerSubmitRequest) (dto.AnswerResponse, error) {
	return dto.AnswerResponse{}, nil
}

func (stubSessionService) AttachAudio(context.Context, uint, uint, string, io.ReadSeeker) (dto.AnswerResponse, error) {
	return dto.AnswerResponse{}, nil
}

func (stubSessionService) Abandon(context.Context, uint) error { return nil }

func (stubSessionService) Detail(context.Context, uint) (dto.SessionDetailResponse, error) {
	return dto.SessionDetailResponse{}, nil
}

func (stubSessionService) History(context.Context, uint, int) ([]dto.SessionResponse, error) {
	return nil, nil
}

func (stubSessionService) Remaining(context.Context, uint) (time.Duration, string, error) {
	return 0, "", nil
}

type stubProfileService struct {
	profile dto.LevelProfileResponse
}

func (s stubProfileService) GetLevels(context.Context, uint) (dto.LevelProfileResponse, error) {
	return s.profile, nil
}

func (s stubProfileService) Invalidate(context.Context, uint) {}

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func validateResponse(t *testing.T, schema *jsonschema.Schema, resp *http.Response) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestExamResultContract(t *testing.T) {
	schema := compileSchema(t, "exam_result.schema.json")

	scoring := stubScoringService{result: dto.ExamResultResponse{
		SessionID:     42,
		OverallScore:  76.25,
		DetectedLevel: "B2",
		Feedback:      "Strong reading comprehension. Keep practicing.",
		SkillScores:   map[string]float64{"reading": 82.5, "writing": 70},
	}}

	app := fiber.New()
	examHandler := handler.NewExamHandler(stubSessionService{}, scoring, zerolog.Nop())
	examHandler.Register(app.Group("/api/v1/exams", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(1))
		c.Locals("user_role", "student")
		return c.Next()
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/exams/42/finalize", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	validateResponse(t, schema, resp)
}

func TestLevelProfileContract(t *testing.T) {
	schema := compileSchema(t, "level_profile.schema.json")

	reading := "B1"
	profiles := stubProfileService{profile: dto.LevelProfileResponse{
		StudentID:    7,
		ReadingLevel: &reading,
		OverallLevel: "A2",
		RecentSessions: []dto.SessionResponse{
			{
				ID:           3,
				StudentID:    7,
				Skill:        "reading",
				Difficulty:   "B1",
				StartTime:    time.Now().Add(-time.Hour).UTC(),
				EndTime:      time.Now().Add(-40 * time.Minute).UTC(),
				LastActivity: time.Now().Add(-45 * time.Minute).UTC(),
				Status:       "COMPLETED",
				OverallScore: 64,
			},
		},
		GeneratedAt: time.Now().UTC(),
		CacheHit:    true,
	}}

	app := fiber.New()
	profileHandler := handler.NewProfileHandler(profiles, zerolog.Nop())
	profileHandler.Register(app.Group("/api/v1/profiles", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(7))
		c.Locals("user_role", "student")
		return c.Next()
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles/levels", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	validateResponse(t, schema, resp)
}
