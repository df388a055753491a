package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/lingua-go-api/internal/config"
	"github.com/noah-isme/lingua-go-api/internal/handler"
	"github.com/noah-isme/lingua-go-api/internal/middleware"
	"github.com/noah-isme/lingua-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ExamHandler      *handler.ExamHandler
	ExamTimerHandler *handler.ExamTimerHandler
	ProfileHandler   *handler.ProfileHandler
	AdminExamHandler *handler.AdminExamHandler
	JWTMiddleware    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Exam sessions
	if deps.ExamHandler != nil {
		// Throttled per user so a client cannot hammer the question draw.
		exams := app.Group("/api/v1/exams", jwtMiddleware, middleware.RateLimit("exam", 120, time.Minute))
		deps.ExamHandler.Register(exams)

		if deps.ExamTimerHandler != nil {
			deps.ExamTimerHandler.Register(exams)
		}
	}

	// Level profiles
	if deps.ProfileHandler != nil {
		profiles := app.Group("/api/v1/profiles", jwtMiddleware)
		deps.ProfileHandler.Register(profiles)
	}

	// Admin surface: question pool and score overrides
	if deps.AdminExamHandler != nil {
		admin := app.Group("/api/admin/exams", jwtMiddleware, middleware.RequireRole("admin"))
		deps.AdminExamHandler.Register(admin)
	}
}
