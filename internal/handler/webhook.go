package handler

import (
	"log/slog"
	"net/http"

	"github.com/looply/looply/internal/auth"
	"github.com/looply/looply/internal/handler/dto"
	"github.com/looply/looply/internal/service"
)

// WebhookHandler ingests leads pushed by integrations. Requests reach it
// through the API key middleware, which puts the owner in the context.
type WebhookHandler struct {
	svc    *service.LeadService
	logger *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(svc *service.LeadService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		svc:    svc,
		logger: logger,
	}
}

// IngestLead handles POST /api/webhook/leads.
// Every response carries the request id so integrators can report it.
func (h *WebhookHandler) IngestLead(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	authCtx, ok := auth.KeyFromContext(r.Context())
	if !ok {
		h.writeError(w, reqID, http.StatusUnauthorized, "unauthorized")
		return
	}

	// The owner is checked before the body is read, so an expired account
	// learns that even when its payload is malformed.
	if _, err := h.svc.RequireActiveUser(r.Context(), authCtx.OwnerEmail); err != nil {
		h.handleServiceError(w, reqID, err)
		return
	}

	doc, err := readJSON(r)
	if err != nil {
		status, code := http.StatusBadRequest, "invalid_json"
		if isTooLarge(err) {
			status, code = http.StatusRequestEntityTooLarge, "payload_too_large"
		}
		h.writeError(w, reqID, status, code)
		return
	}

	lead, err := h.svc.IngestWebhookLead(r.Context(), authCtx.OwnerEmail, dto.WebhookLeadInput(doc))
	if err != nil {
		h.handleServiceError(w, reqID, err)
		return
	}

	h.logger.Info("webhook_lead_created",
		slog.String("request_id", reqID),
		slog.String("lead_id", lead.ID),
		slog.String("key_id", authCtx.KeyID),
	)
	writeJSON(w, http.StatusOK, dto.WebhookLeadResponse{OK: true, RequestID: reqID, LeadID: lead.ID})
}

func (h *WebhookHandler) handleServiceError(w http.ResponseWriter, reqID string, err error) {
	status, code, known := mapServiceError(err)
	if !known {
		h.logger.Error("webhook_lead_failed",
			slog.String("request_id", reqID),
			slog.String("error", err.Error()),
		)
	}
	h.writeError(w, reqID, status, code)
}

func (h *WebhookHandler) writeError(w http.ResponseWriter, reqID string, status int, code string) {
	writeJSON(w, status, dto.ErrorResponse{Error: code, RequestID: reqID})
}
