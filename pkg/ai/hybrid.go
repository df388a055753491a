package ai

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var hybridFallbacks = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "lingua",
	Subsystem: "ai",
	Name:      "evaluation_fallbacks_total",
	Help:      "Number of evaluations resolved by the deterministic fallback",
})

// HybridEvaluator prefers a remote generative judgment and degrades to the
// deterministic rule-based formula when the remote call fails, times out, or
// returns unparseable output. Evaluate never returns an error.
type HybridEvaluator struct {
	remote   Evaluator
	fallback Evaluator
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewHybridEvaluator wires the two evaluation strategies together. remote may
// be nil, in which case every evaluation takes the deterministic path.
func NewHybridEvaluator(remote Evaluator, timeout time.Duration, logger zerolog.Logger) *HybridEvaluator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &HybridEvaluator{
		remote:   remote,
		fallback: NewRuleBasedEvaluator(),
		timeout:  timeout,
		logger:   logger.With().Str("component", "hybrid_evaluator").Logger(),
	}
}

// Evaluate grades the text, absorbing remote failures internally.
func (e *HybridEvaluator) Evaluate(ctx context.Context, input EvaluationInput) (EvaluationResult, error) {
	if e.remote != nil {
		remoteCtx, cancel := context.WithTimeout(ctx, e.timeout)
		result, err := e.remote.Evaluate(remoteCtx, input)
		cancel()
		if err == nil {
			result.Score = clamp(result.Score, 0, 100)
			return result, nil
		}

		hybridFallbacks.Inc()
		e.logger.Warn().Err(err).Msg("remote evaluation failed, falling back to rule-based analysis")
	}

	return e.fallback.Evaluate(ctx, input)
}
