package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	redis     Pinger
	kinds     []domain.PriceModel
	startedAt time.Time
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler. redis may be nil when Redis is
// disabled.
func NewHealthHandler(redis Pinger, kinds []domain.PriceModel, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{redis: redis, kinds: kinds, startedAt: time.Now(), logger: logger}
}

// HealthCheck reports liveness and Redis connectivity. A failing Redis
// degrades the status but the endpoint still answers 200, since the scanner
// keeps serving from memory.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, redis := "ok", "disabled"
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.redis.Ping(ctx); err != nil {
			h.logger.WarnContext(r.Context(), "handler: redis ping failed", slog.String("error", err.Error()))
			status, redis = "degraded", "error"
		} else {
			redis = "ok"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"redis":          redis,
		"kinds":          h.kinds,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
