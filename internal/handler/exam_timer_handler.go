package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lingua-go-api/internal/models"
	"github.com/noah-isme/lingua-go-api/internal/service"
)

// timerTick is the payload streamed to exam takers watching the countdown.
type timerTick struct {
	SessionID        uint    `json:"session_id"`
	RemainingSeconds float64 `json:"remaining_seconds"`
	Status           string  `json:"status"`
}

// ExamTimerHandler streams the remaining exam time over a websocket so the
// client does not have to poll. The stream closes once the session leaves
// the IN_PROGRESS state.
type ExamTimerHandler struct {
	sessions service.SessionService
	interval time.Duration
	logger   zerolog.Logger
}

// NewExamTimerHandler creates a timer handler pushing one tick per interval.
func NewExamTimerHandler(sessions service.SessionService, interval time.Duration, logger zerolog.Logger) *ExamTimerHandler {
	if interval <= 0 {
		interval = time.Second
	}
	return &ExamTimerHandler{
		sessions: sessions,
		interval: interval,
		logger:   logger.With().Str("component", "exam_timer_handler").Logger(),
	}
}

// Register binds the websocket upgrade under the provided router group.
func (h *ExamTimerHandler) Register(router fiber.Router) {
	router.Use("/:id/timer", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/:id/timer", websocket.New(h.handleConnection))
}

func (h *ExamTimerHandler) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	sessionID, err := websocketSessionID(conn)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "invalid session id"))
		return
	}

	h.logger.Info().Uint("session_id", sessionID).Msg("exam timer websocket connected")
	defer h.logger.Info().Uint("session_id", sessionID).Msg("exam timer websocket disconnected")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		remaining, status, err := h.sessions.Remaining(context.Background(), sessionID)
		if err != nil {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusNotFound, "session unavailable"))
			return
		}

		tick := timerTick{
			SessionID:        sessionID,
			RemainingSeconds: remaining.Seconds(),
			Status:           status,
		}
		if err := conn.WriteJSON(tick); err != nil {
			return
		}

		if status != models.SessionStatusInProgress {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
			return
		}

		<-ticker.C
	}
}

func websocketSessionID(conn *websocket.Conn) (uint, error) {
	value := strings.TrimSpace(conn.Params("id"))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}
