package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ResultEvent describes a finalized session for downstream consumers
// (notification fan-out, reporting pipelines).
type ResultEvent struct {
	SessionID     uint      `json:"session_id"`
	StudentID     uint      `json:"student_id"`
	Skill         string    `json:"skill"`
	OverallScore  float64   `json:"overall_score"`
	DetectedLevel string    `json:"detected_level"`
	FinalizedAt   time.Time `json:"finalized_at"`
}

// ResultNotifier publishes exam results. Publishing is best effort and never
// fails the scoring pipeline.
type ResultNotifier interface {
	SessionFinalized(ctx context.Context, event ResultEvent)
}

type resultNotifier struct {
	nats        *nats.Conn
	natsSubject string
	redis       *redis.Client
	redisStream string
	logger      zerolog.Logger
}

// NewResultNotifier wires result publishing to NATS and a redis stream. Both
// connections are optional; a nil connection skips that channel.
func NewResultNotifier(natsConn *nats.Conn, redisClient *redis.Client, channelBase string, logger zerolog.Logger) ResultNotifier {
	subject := ""
	stream := ""
	if channelBase != "" {
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".exam.finalized"
		stream = channelBase + ":exam:results"
	}

	return &resultNotifier{
		nats:        natsConn,
		natsSubject: subject,
		redis:       redisClient,
		redisStream: stream,
		logger:      logger.With().Str("component", "result_notifier").Logger(),
	}
}

func (n *resultNotifier) SessionFinalized(ctx context.Context, event ResultEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn().Err(err).Msg("failed to encode result event")
		return
	}

	if n.nats != nil && n.natsSubject != "" {
		if err := n.nats.Publish(n.natsSubject, payload); err != nil {
			n.logger.Warn().Err(err).Str("subject", n.natsSubject).Msg("failed to publish result event to nats")
		}
	}

	if n.redis != nil && n.redisStream != "" {
		if err := n.redis.XAdd(ctx, &redis.XAddArgs{
			Stream: n.redisStream,
			MaxLen: 1024,
			Approx: true,
			Values: map[string]interface{}{"event": string(payload)},
		}).Err(); err != nil {
			n.logger.Warn().Err(err).Str("stream", n.redisStream).Msg("failed to append result event to redis stream")
		}
	}
}
