package speech

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

var (
	sttDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lingua",
		Subsystem: "speech",
		Name:      "transcription_duration_seconds",
		Help:      "Duration of speech-to-text requests",
	})

	sttFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lingua",
		Subsystem: "speech",
		Name:      "transcription_failures_total",
		Help:      "Number of speech-to-text failures",
	})
)

// WhisperConfig defines configuration options for the Whisper transcriber.
type WhisperConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// WhisperTranscriber implements Transcriber against the OpenAI audio API.
type WhisperTranscriber struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewWhisperTranscriber builds a transcriber from the provided configuration.
func NewWhisperTranscriber(cfg WhisperConfig) (*WhisperTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &WhisperTranscriber{
		client:  openai.NewClientWithConfig(config),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  cfg.Logger.With().Str("component", "whisper_transcriber").Logger(),
	}, nil
}

// Transcribe converts the audio stream to text. Any transport or API failure
// is reported as ErrUnavailable so callers can distinguish it from an empty
// transcript.
func (t *WhisperTranscriber) Transcribe(parent context.Context, filename string, audio io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(parent, t.timeout)
	defer cancel()

	start := time.Now()
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: filename,
		Reader:   audio,
	})
	sttDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		sttFailures.Inc()
		t.logger.Warn().Err(err).Str("file", filename).Msg("transcription request failed")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return strings.TrimSpace(resp.Text), nil
}
