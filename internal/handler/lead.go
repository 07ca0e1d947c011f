package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/looply/looply/internal/handler/dto"
	"github.com/looply/looply/internal/kv"
	"github.com/looply/looply/internal/service"
)

// LeadHandler serves account registration, leads and their timelines.
type LeadHandler struct {
	svc    *service.LeadService
	store  kv.Store
	logger *slog.Logger
}

// NewLeadHandler creates a new LeadHandler.
func NewLeadHandler(svc *service.LeadService, store kv.Store, logger *slog.Logger) *LeadHandler {
	return &LeadHandler{
		svc:    svc,
		store:  store,
		logger: logger,
	}
}

// Register handles POST /api/app/register.
func (h *LeadHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !storageReady(w, h.store) {
		return
	}
	doc, err := readJSON(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	user, err := h.svc.Register(r.Context(), dto.RegisterInput(doc))
	if err != nil {
		handleServiceError(w, h.logger, "register_failed", err)
		return
	}

	h.logger.Info("user_registered", slog.String("plan", string(user.Plan)))
	writeJSON(w, http.StatusOK, dto.OKResponse{OK: true})
}

// List handles GET /api/app/leads.
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	if !storageReady(w, h.store) {
		return
	}
	query := r.URL.Query()
	cursor, limit := service.ParsePage(query.Get("cursor"), query.Get("limit"))

	page, err := h.svc.ListLeads(r.Context(), query.Get("ownerEmail"), cursor, limit)
	if err != nil {
		handleServiceError(w, h.logger, "leads_list_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToListResponse(page))
}

// Create handles POST /api/app/leads.
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !storageReady(w, h.store) {
		return
	}
	doc, err := readJSON(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	input := dto.CreateLeadInput(doc)
	lead, err := h.svc.CreateLead(r.Context(), input)
	if err != nil {
		handleServiceError(w, h.logger, "lead_create_failed", err)
		return
	}

	h.logger.Info("lead_created",
		slog.String("lead_id", lead.ID),
		slog.String("origin", string(input.Origin)),
	)
	writeJSON(w, http.StatusOK, dto.LeadResponse{OK: true, Lead: lead})
}

// Get handles GET /api/app/leads/{id}.
func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !storageReady(w, h.store) {
		return
	}

	lead, err := h.svc.GetLead(r.Context(), r.URL.Query().Get("ownerEmail"), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, "lead_get_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.LeadResponse{OK: true, Lead: lead})
}

// ListEvents handles GET /api/app/leads/{id}/events.
func (h *LeadHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if !storageReady(w, h.store) {
		return
	}
	query := r.URL.Query()
	cursor, limit := service.ParsePage(query.Get("cursor"), query.Get("limit"))

	page, err := h.svc.ListEvents(r.Context(), query.Get("ownerEmail"), chi.URLParam(r, "id"), cursor, limit)
	if err != nil {
		handleServiceError(w, h.logger, "events_list_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToListResponse(page))
}

// CreateEvent handles POST /api/app/leads/{id}/events.
func (h *LeadHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	if !storageReady(w, h.store) {
		return
	}
	doc, err := readJSON(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), dto.CreateEventInput(doc, chi.URLParam(r, "id")))
	if err != nil {
		handleServiceError(w, h.logger, "event_create_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.EventResponse{OK: true, Event: event})
}
