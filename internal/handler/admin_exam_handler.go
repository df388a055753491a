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

// AdminExamHandler manages the administrative endpoints: question pool
// maintenance and manual score overrides.
type AdminExamHandler struct {
	service service.AdminExamService
	logger  zerolog.Logger
}

// NewAdminExamHandler builds an admin exam handler instance.
func NewAdminExamHandler(service service.AdminExamService, logger zerolog.Logger) *AdminExamHandler {
	return &AdminExamHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_exam_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AdminExamHandler) Register(router fiber.Router) {
	router.Get("/questions", h.listQuestions)
	router.Post("/questions", h.createQuestion)
	router.Delete("/questions/:id", h.deactivateQuestion)
	router.Patch("/sessions/:id/score", h.overrideScore)
}

func (h *AdminExamHandler) listQuestions(c *fiber.Ctx) error {
	var filter dto.QuestionListFilter
	if err := c.QueryParser(&filter); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	questions, err := h.service.ListQuestions(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "questions retrieved", questions)
}

func (h *AdminExamHandler) createQuestion(c *fiber.Ctx) error {
	var payload dto.QuestionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	question, err := h.service.CreateQuestion(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question created", question)
}

func (h *AdminExamHandler) deactivateQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeactivateQuestion(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question deactivated", nil)
}

func (h *AdminExamHandler) overrideScore(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ScoreOverrideRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	session, err := h.service.OverrideScore(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("session_id", id).
		Float64("score", payload.Score).
		Msg("session score overridden")

	return utils.SendSuccess(c, "session score overridden", session)
}

func (h *AdminExamHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exam session not found")
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
