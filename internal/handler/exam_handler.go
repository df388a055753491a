package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lingua-go-api/internal/dto"
	"github.com/noah-isme/lingua-go-api/internal/service"
	"github.com/noah-isme/lingua-go-api/internal/utils"
)

var errSessionAccessDenied = errors.New("access denied")

// ExamHandler manages the exam-taking endpoints: session lifecycle, answer
// submission, audio attachment and finalization.
type ExamHandler struct {
	sessions service.SessionService
	scoring  service.ScoringService
	logger   zerolog.Logger
}

// NewExamHandler builds an exam handler instance.
func NewExamHandler(sessions service.SessionService, scoring service.ScoringService, logger zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		sessions: sessions,
		scoring:  scoring,
		logger:   logger.With().Str("component", "exam_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ExamHandler) Register(router fiber.Router) {
	router.Post("", h.start)
	router.Get("/history", h.history)
	router.Get("/:id", h.detail)
	router.Post("/:id/answers", h.submitAnswer)
	router.Post("/:id/answers/:question_id/audio", h.attachAudio)
	router.Post("/:id/finalize", h.finalize)
	router.Post("/:id/abandon", h.abandon)
}

func (h *ExamHandler) start(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.StartExamRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.sessions.StartOrResume(c.Context(), studentID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	status := fiber.StatusCreated
	message := "exam session started"
	if result.Resumed {
		status = fiber.StatusOK
		message = "exam session resumed"
	}

	return utils.SendSuccessWithStatus(c, status, message, result)
}

func (h *ExamHandler) history(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	sessions, err := h.sessions.History(c.Context(), studentID, limit)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exam history retrieved", sessions)
}

func (h *ExamHandler) detail(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	detail, err := h.sessions.Detail(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	if !h.canAccessSession(c, detail.Session.StudentID) {
		return utils.SendError(c, fiber.StatusForbidden, "access denied")
	}

	return utils.SendSuccess(c, "exam session retrieved", detail)
}

func (h *ExamHandler) submitAnswer(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.authorizeSession(c, id); err != nil {
		return h.handleError(c, err)
	}

	var payload dto.AnswerSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	answer, err := h.sessions.SubmitAnswer(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer recorded", answer)
}

func (h *ExamHandler) attachAudio(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	questionID, err := parseUintParam(c, "question_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.authorizeSession(c, id); err != nil {
		return h.handleError(c, err)
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "audio file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "unable to read audio file")
	}
	defer file.Close()

	answer, err := h.sessions.AttachAudio(c.Context(), id, questionID, fileHeader.Filename, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "audio attached", answer)
}

func (h *ExamHandler) finalize(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.authorizeSession(c, id); err != nil {
		return h.handleError(c, err)
	}

	var payload dto.FinalizeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	result, err := h.scoring.Finalize(c.Context(), id, payload.FallbackSkill)
	if err != nil {
		return h.handleError(c, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("session_id", id).
		Float64("overall_score", result.OverallScore).
		Str("detected_level", result.DetectedLevel).
		Msg("exam session finalized")

	return utils.SendSuccess(c, "exam session finalized", result)
}

func (h *ExamHandler) abandon(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.authorizeSession(c, id); err != nil {
		return h.handleError(c, err)
	}

	if err := h.sessions.Abandon(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exam session abandoned", nil)
}

// canAccessSession allows the owning student and any admin.
func (h *ExamHandler) canAccessSession(c *fiber.Ctx, ownerID uint) bool {
	if userRoleFromContext(c) == "admin" {
		return true
	}
	return userIDFromContext(c) == ownerID
}

// authorizeSession enforces the ownership rule on session-scoped writes. It
// loads the session first, so a past-deadline session is flipped to EXPIRED
// before the write path sees it.
func (h *ExamHandler) authorizeSession(c *fiber.Ctx, id uint) error {
	detail, err := h.sessions.Detail(c.Context(), id)
	if err != nil {
		return err
	}
	if !h.canAccessSession(c, detail.Session.StudentID) {
		return errSessionAccessDenied
	}
	return nil
}

func (h *ExamHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exam session not found")
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.Is(err, service.ErrSessionExpired):
		return utils.SendError(c, fiber.StatusGone, "exam session expired")
	case errors.Is(err, service.ErrSessionNotActive):
		return utils.SendError(c, fiber.StatusConflict, "exam session is not active")
	case errors.Is(err, service.ErrSkillAlreadyCompleted):
		return utils.SendError(c, fiber.StatusConflict, "skill already completed this cycle")
	case errors.Is(err, service.ErrUnsupportedAudioType):
		return utils.SendError(c, fiber.StatusBadRequest, "unsupported audio type")
	case errors.Is(err, errSessionAccessDenied):
		return utils.SendError(c, fiber.StatusForbidden, "access denied")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
