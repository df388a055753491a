package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	adminRequestsTotal  *prometheus.CounterVec
	adminLatencySeconds *prometheus.HistogramVec
	adminErrorsTotal    *prometheus.CounterVec

	examFinalizeSeconds    prometheus.Histogram
	examsFinalizedTotal    *prometheus.CounterVec
	transcriptionFallbacks prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used for admin and exam observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lingua",
			Name:      "admin_requests_total",
			Help:      "Total number of admin API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lingua",
			Name:      "admin_latency_seconds",
			Help:      "Latency distribution for admin API requests.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		adminErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lingua",
			Name:      "admin_errors_total",
			Help:      "Total number of error responses returned by admin endpoints.",
		}, []string{"method", "route", "status"})

		examFinalizeSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lingua",
			Name:      "exam_finalize_duration_seconds",
			Help:      "Time spent grading and finalizing an exam session.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		})

		examsFinalizedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lingua",
			Name:      "exams_finalized_total",
			Help:      "Total number of finalized exam sessions by skill and level.",
		}, []string{"skill", "level"})

		transcriptionFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lingua",
			Name:      "transcription_fallbacks_total",
			Help:      "Total number of speaking answers scored zero because transcription was unavailable.",
		})

		prometheus.MustRegister(
			adminRequestsTotal, adminLatencySeconds, adminErrorsTotal,
			examFinalizeSeconds, examsFinalizedTotal, transcriptionFallbacks,
		)
	})
}

// AdminRequests exposes the counter for admin requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for admin requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

// AdminErrors exposes the counter for admin error responses.
func AdminErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return adminErrorsTotal
}

// ExamFinalizeDuration exposes the grading latency histogram.
func ExamFinalizeDuration() prometheus.Histogram {
	RegisterMetrics()
	return examFinalizeSeconds
}

// ExamsFinalized exposes the counter for finalized sessions.
func ExamsFinalized() *prometheus.CounterVec {
	RegisterMetrics()
	return examsFinalizedTotal
}

// TranscriptionFallbacks exposes the counter for zero-scored speaking answers.
func TranscriptionFallbacks() prometheus.Counter {
	RegisterMetrics()
	return transcriptionFallbacks
}
