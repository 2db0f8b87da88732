package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tripflow/tripflow/api"
)

// Pinger is a dependency that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes. Named dependencies
// are pinged for the deep check; /healthz stays shallow.
type HealthHandler struct {
	deps     map[string]Pinger
	sessions func(ctx context.Context) (int, error)
	logger   *zap.Logger
}

// NewHealthHandler creates the health handler with optional dependency
// checks.
func NewHealthHandler(deps map[string]Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		deps:   deps,
		logger: logger.With(zap.String("component", "health_handler")),
	}
}

// WithSessionCounter adds an active-session count to the health report.
func (h *HealthHandler) WithSessionCounter(count func(ctx context.Context) (int, error)) *HealthHandler {
	h.sessions = count
	return h
}

// ServeHTTP handles GET /health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	checks := make(map[string]string, len(h.deps))
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = "unavailable"
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	var active int
	if h.sessions != nil {
		n, err := h.sessions(ctx)
		if err != nil {
			h.logger.Warn("session count unavailable", zap.Error(err))
		} else {
			active = n
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, api.HealthResponse{Status: status, Checks: checks, ActiveSessions: active})
}

// Liveness handles GET /healthz with no dependency checks.
func Liveness(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}
