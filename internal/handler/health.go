package handler

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// readyTimeout bounds all dependency checks of one readiness probe.
const readyTimeout = 5 * time.Second

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	store HealthChecker
	cache HealthChecker
}

// NewHealthHandler creates a new HealthHandler.
// Pass nil for store or cache when they are not in use.
func NewHealthHandler(store, cache HealthChecker) *HealthHandler {
	return &HealthHandler{
		store: store,
		cache: cache,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is a liveness probe endpoint.
// It returns 200 if the server is running; no dependency checks.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is a readiness probe endpoint.
// It returns 200 only if every configured dependency answers. A store
// without credentials is reported but does not fail the probe, since the
// API answers storage_not_configured on its own.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	deps := []struct {
		name string
		dep  HealthChecker
	}{
		{"kv", h.store},
		{"redis", h.cache},
	}
	results := make([]string, len(deps))

	var g errgroup.Group
	for i, d := range deps {
		i, d := i, d
		g.Go(func() error {
			results[i] = check(ctx, d.dep)
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]string, len(deps))
	status, statusCode := "ok", http.StatusOK
	for i, d := range deps {
		checks[d.name] = results[i]
		if results[i] != "ok" && results[i] != "not configured" {
			status, statusCode = "unhealthy", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, statusCode, HealthResponse{Status: status, Checks: checks})
}

func check(ctx context.Context, dep HealthChecker) string {
	if dep == nil {
		return "not configured"
	}
	if c, ok := dep.(interface{ Configured() bool }); ok && !c.Configured() {
		return "not configured"
	}
	if err := dep.Ping(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
