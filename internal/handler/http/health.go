package http

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/windfall/speakcoach_service/internal/logger"
	"github.com/windfall/speakcoach_service/pkg/response"
)

const readinessTimeout = 2 * time.Second

// ReadinessCheck is one dependency pinged by /ready.
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	checks []ReadinessCheck
	log    zerolog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(log zerolog.Logger, checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{checks: checks, log: log}
}

// Health reports that the process is up.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": logger.ServiceName,
	})
}

// Ready pings every configured dependency.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			h.log.Warn().Err(err).Str("dependency", c.Name).Msg("Readiness check failed")
			results[c.Name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[c.Name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	response.JSON(w, status, map[string]interface{}{
		"status": state,
		"checks": results,
	})
}

// Live checks if the service is alive (for Kubernetes liveness probe).
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status": "alive",
	})
}
