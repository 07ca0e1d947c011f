package handler

import (
	"fmt"
	"net/http"

	"github.com/looply/looply/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "looply_users_registered_total %d\n", snap.UsersRegistered)

	writeMetric(w, "looply_leads_created_total{origin=\"manual\"} %d\n", snap.LeadsCreatedManual)
	writeMetric(w, "looply_leads_created_total{origin=\"test\"} %d\n", snap.LeadsCreatedTest)
	writeMetric(w, "looply_leads_created_total{origin=\"webhook\"} %d\n", snap.LeadsCreatedWebhook)
	writeMetric(w, "looply_timeline_events_created_total %d\n", snap.EventsCreated)

	writeMetric(w, "looply_api_keys_created_total %d\n", snap.APIKeysCreated)
	writeMetric(w, "looply_api_keys_revoked_total %d\n", snap.APIKeysRevoked)
	writeMetric(w, "looply_api_key_auth_failures_total %d\n", snap.APIKeyAuthFailed)

	writeMetric(w, "looply_intake_requests_total{outcome=\"sent\"} %d\n", snap.IntakeSent)
	writeMetric(w, "looply_intake_requests_total{outcome=\"honeypot\"} %d\n", snap.IntakeHoneypot)
	writeMetric(w, "looply_intake_requests_total{outcome=\"invalid\"} %d\n", snap.IntakeInvalid)
	writeMetric(w, "looply_intake_requests_total{outcome=\"failed\"} %d\n", snap.IntakeFailed)
	writeMetric(w, "looply_rate_limited_total %d\n", snap.RateLimited)

	writeMetric(w, "looply_engine_requests_total{class=\"2xx\"} %d\n", snap.EngineRequests2xx)
	writeMetric(w, "looply_engine_requests_total{class=\"4xx\"} %d\n", snap.EngineRequests4xx)
	writeMetric(w, "looply_engine_requests_total{class=\"5xx\"} %d\n", snap.EngineRequests5xx)
	writeMetric(w, "looply_engine_requests_total{class=\"network\"} %d\n", snap.EngineRequestsNetwork)
	writeMetric(w, "looply_engine_request_duration_seconds_count %d\n", snap.EngineDurationCount)
	writeMetric(w, "looply_engine_request_duration_seconds_sum %.6f\n", float64(snap.EngineDurationTotalNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
