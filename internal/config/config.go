package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	EventChannelBase       string
	JWTSecret              string
	JWTRefreshSecret       string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	ProfileCacheTTL        time.Duration
	ExamDuration           time.Duration
	ExamQuestionCount      int
	PassThreshold          float64
	TimerTickInterval      time.Duration
	EvaluatorTimeout       time.Duration
	TranscriberTimeout     time.Duration
	OpenAIAPIKey           string
	OpenAIModel            string
	WhisperModel           string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LINGUA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Lingua API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("event.channel_base", "lingua")
	v.SetDefault("cloudinary.folder", "lingua/recordings")
	v.SetDefault("profile.cache_ttl", "5m")
	v.SetDefault("exam.duration", "20m")
	v.SetDefault("exam.question_count", 10)
	v.SetDefault("exam.pass_threshold", 60.0)
	v.SetDefault("exam.timer_tick", "1s")
	v.SetDefault("ai.evaluator_timeout", "15s")
	v.SetDefault("ai.transcriber_timeout", "30s")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.whisper_model", "whisper-1")

	cacheTTL, err := parseDuration(v.GetString("profile.cache_ttl"), "profile cache ttl")
	if err != nil {
		return Config{}, err
	}
	examDuration, err := parseDuration(v.GetString("exam.duration"), "exam duration")
	if err != nil {
		return Config{}, err
	}
	timerTick, err := parseDuration(v.GetString("exam.timer_tick"), "timer tick interval")
	if err != nil {
		return Config{}, err
	}
	evaluatorTimeout, err := parseDuration(v.GetString("ai.evaluator_timeout"), "evaluator timeout")
	if err != nil {
		return Config{}, err
	}
	transcriberTimeout, err := parseDuration(v.GetString("ai.transcriber_timeout"), "transcriber timeout")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		EventChannelBase:       v.GetString("event.channel_base"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTRefreshSecret:       v.GetString("jwt.refresh_secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		ProfileCacheTTL:        cacheTTL,
		ExamDuration:           examDuration,
		ExamQuestionCount:      v.GetInt("exam.question_count"),
		PassThreshold:          v.GetFloat64("exam.pass_threshold"),
		TimerTickInterval:      timerTick,
		EvaluatorTimeout:       evaluatorTimeout,
		TranscriberTimeout:     transcriberTimeout,
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		OpenAIModel:            v.GetString("ai.model"),
		WhisperModel:           v.GetString("ai.whisper_model"),
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("jwt secrets must be provided")
	}

	if cfg.ExamQuestionCount <= 0 {
		cfg.ExamQuestionCount = 10
	}

	if cfg.PassThreshold <= 0 || cfg.PassThreshold > 100 {
		cfg.PassThreshold = 60
	}

	return cfg, nil
}

func parseDuration(raw, label string) (time.Duration, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing %s", label)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", label, err)
	}
	return parsed, nil
}
