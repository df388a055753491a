package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lingua-go-api/internal/service"
	"github.com/noah-isme/lingua-go-api/internal/utils"
)

// ProfileHandler serves the per-skill level profile.
type ProfileHandler struct {
	profiles service.ProfileService
	logger   zerolog.Logger
}

// NewProfileHandler builds a profile handler instance.
func NewProfileHandler(profiles service.ProfileService, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		logger:   logger.With().Str("component", "profile_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ProfileHandler) Register(router fiber.Router) {
	router.Get("/levels", h.ownLevels)
	router.Get("/:student_id/levels", h.studentLevels)
}

func (h *ProfileHandler) ownLevels(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	return h.respondLevels(c, studentID)
}

func (h *ProfileHandler) studentLevels(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if userRoleFromContext(c) != "admin" && userIDFromContext(c) != studentID {
		return utils.SendError(c, fiber.StatusForbidden, "access denied")
	}

	return h.respondLevels(c, studentID)
}

func (h *ProfileHandler) respondLevels(c *fiber.Ctx, studentID uint) error {
	profile, err := h.profiles.GetLevels(c.Context(), studentID)
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "student not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "level profile retrieved", profile)
}
