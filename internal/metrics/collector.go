// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector holds the engine's prometheus instruments. It implements the
// orchestrator's Observer interface.
type Collector struct {
	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Turns
	turnsTotal   *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec

	// Research steps
	stepFallbacksTotal *prometheus.CounterVec

	// Itinerary generation
	generationAttempts    prometheus.Histogram
	generationExhaustions prometheus.Counter

	// Sessions
	activeSessions prometheus.Gauge

	logger *zap.Logger
}

// NewCollector registers the instruments under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of conversation turns by routed stage",
		},
		[]string{"stage"},
	)
	c.turnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "End-to-end turn handling duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	c.stepFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_fallbacks_total",
			Help:      "Research steps degraded to the fallback patch",
		},
		[]string{"section"},
	)

	c.generationAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_attempts",
			Help:      "Attempts used per successful itinerary generation",
			Buckets:   []float64{1, 2, 3},
		},
	)
	c.generationExhaustions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_exhaustions_total",
			Help:      "Itinerary generations that exhausted all attempts",
		},
	)

	c.activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in the store",
		},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordHTTPRequest records one handled HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TurnHandled records one completed conversation turn.
func (c *Collector) TurnHandled(stage string, d time.Duration) {
	c.turnsTotal.WithLabelValues(stage).Inc()
	c.turnDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// StepFallback records a research section degrading to its fallback patch.
func (c *Collector) StepFallback(section string) {
	c.stepFallbacksTotal.WithLabelValues(section).Inc()
}

// GenerationAttempts records the attempts a successful generation used.
func (c *Collector) GenerationAttempts(n int) {
	c.generationAttempts.Observe(float64(n))
}

// GenerationExhausted records a generation that failed every attempt.
func (c *Collector) GenerationExhausted() {
	c.generationExhaustions.Inc()
}

// SetActiveSessions updates the active session gauge.
func (c *Collector) SetActiveSessions(n int) {
	c.activeSessions.Set(float64(n))
}

// statusCode buckets an HTTP status for the metric label.
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
