package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is a dependency whose liveness is reported by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports process and dependency health.
type HealthHandler struct {
	deps map[string]Pinger
}

// NewHealthHandler creates a health handler over the named dependencies.
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// Health handles GET /health. It answers 200 OK while the process is up.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Ready handles GET /ready and pings every dependency.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.deps))
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	respondWithJSON(w, status, map[string]interface{}{
		"status": http.StatusText(status),
		"checks": checks,
	})
}
