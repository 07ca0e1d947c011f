package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/looply/looply/internal/handler/dto"
	"github.com/looply/looply/internal/kv"
	"github.com/looply/looply/internal/service"
)

// APIKeyHandler handles API key management endpoints.
type APIKeyHandler struct {
	svc    *service.APIKeyService
	store  kv.Store
	logger *slog.Logger
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(svc *service.APIKeyService, store kv.Store, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		svc:    svc,
		store:  store,
		logger: logger,
	}
}

// List handles GET /api/app/api-keys?ownerEmail=.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	if !storageReady(w, h.store) {
		return
	}

	keys, err := h.svc.List(r.Context(), r.URL.Query().Get("ownerEmail"))
	if err != nil {
		handleServiceError(w, h.logger, "api_keys_list_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.APIKeyListResponse{OK: true, Items: keys})
}

// Create handles POST /api/app/api-keys.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !storageReady(w, h.store) {
		return
	}
	doc, err := readJSON(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	created, err := h.svc.Create(r.Context(), dto.String(doc, "ownerEmail"))
	if err != nil {
		handleServiceError(w, h.logger, "api_key_create_failed", err)
		return
	}

	h.logger.Info("api_key_created",
		slog.String("key_id", created.ID),
		slog.String("key_prefix", created.Prefix),
	)

	// The plaintext key is returned here and never again.
	writeJSON(w, http.StatusOK, dto.APIKeyCreateResponse{OK: true, CreatedAPIKey: *created})
}

// Revoke handles DELETE /api/app/api-keys?ownerEmail=&id=.
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if !storageReady(w, h.store) {
		return
	}
	query := r.URL.Query()

	id := strings.TrimSpace(query.Get("id"))
	if err := h.svc.Revoke(r.Context(), query.Get("ownerEmail"), id); err != nil {
		handleServiceError(w, h.logger, "api_key_revoke_failed", err)
		return
	}

	h.logger.Info("api_key_revoked", slog.String("key_id", id))
	writeJSON(w, http.StatusOK, dto.OKResponse{OK: true})
}
