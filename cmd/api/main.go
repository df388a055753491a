package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lingua-go-api/internal/config"
	"github.com/noah-isme/lingua-go-api/internal/database"
	"github.com/noah-isme/lingua-go-api/internal/handler"
	"github.com/noah-isme/lingua-go-api/internal/middleware"
	"github.com/noah-isme/lingua-go-api/internal/models"
	"github.com/noah-isme/lingua-go-api/internal/repository"
	"github.com/noah-isme/lingua-go-api/internal/router"
	"github.com/noah-isme/lingua-go-api/internal/service"
	"github.com/noah-isme/lingua-go-api/pkg/ai"
	"github.com/noah-isme/lingua-go-api/pkg/audio"
	"github.com/noah-isme/lingua-go-api/pkg/speech"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.StudentProfile{},
		&models.Question{},
		&models.QuestionOption{},
		&models.ExamSession{},
		&models.Answer{},
		&models.LevelRecord{},
		&models.FeedbackReport{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	audioStore, err := audio.NewCloudinaryStore(audio.CloudinaryConfig{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create audio store: %v", err)
	}

	var remote ai.Evaluator
	var transcriber speech.Transcriber
	if cfg.OpenAIAPIKey != "" {
		openAIEvaluator, err := ai.NewOpenAIEvaluator(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("failed to create evaluator: %v", err)
		}
		remote = openAIEvaluator

		whisper, err := speech.NewWhisperTranscriber(speech.WhisperConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.WhisperModel,
			Timeout: cfg.TranscriberTimeout,
			Logger:  logger,
		})
		if err != nil {
			log.Fatalf("failed to create transcriber: %v", err)
		}
		transcriber = whisper
	} else {
		// Without an API key the rule-based evaluator grades everything and
		// speaking answers fall back to canned transcripts.
		transcriber = speech.NewStaticTranscriber()
	}
	evaluator := ai.NewHybridEvaluator(remote, cfg.EvaluatorTimeout, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	questionRepo := repository.NewQuestionRepository(db)
	sessionRepo := repository.NewExamSessionRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	levelRepo := repository.NewLevelRecordRepository(db)
	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewFeedbackReportRepository(db)

	progressionService := service.NewProgressionService(levelRepo, logger)
	profileService := service.NewProfileService(levelRepo, sessionRepo, redisClient, cfg.ProfileCacheTTL, logger)
	notifier := service.NewResultNotifier(natsConn, redisClient, cfg.EventChannelBase, logger)
	sessionService := service.NewSessionService(sessionRepo, answerRepo, questionRepo, userRepo, progressionService, audioStore, validate, logger, service.SessionConfig{
		ExamDuration:  cfg.ExamDuration,
		QuestionCount: cfg.ExamQuestionCount,
	})
	scoringService := service.NewScoringService(sessionRepo, answerRepo, questionRepo, reportRepo, evaluator, transcriber, audioStore, progressionService, profileService, notifier, logger, service.ScoringConfig{
		PassThreshold: cfg.PassThreshold,
	})
	adminService := service.NewAdminExamService(questionRepo, scoringService, validate, logger)

	examHandler := handler.NewExamHandler(sessionService, scoringService, logger)
	timerHandler := handler.NewExamTimerHandler(sessionService, cfg.TimerTickInterval, logger)
	profileHandler := handler.NewProfileHandler(profileService, logger)
	adminHandler := handler.NewAdminExamHandler(adminService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ExamHandler:      examHandler,
		ExamTimerHandler: timerHandler,
		ProfileHandler:   profileHandler,
		AdminExamHandler: adminHandler,
		JWTMiddleware:    middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
