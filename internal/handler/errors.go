package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/looply/looply/internal/kv"
	"github.com/looply/looply/internal/service"
)

// serviceErrors maps service sentinels to status and wire code.
var serviceErrors = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrMissingOwner, http.StatusBadRequest, "missing_ownerEmail"},
	{service.ErrInvalidEmail, http.StatusBadRequest, "invalid_email"},
	{service.ErrInvalidName, http.StatusBadRequest, "invalid_name"},
	{service.ErrMissingType, http.StatusBadRequest, "missing_type"},
	{service.ErrMissingTitle, http.StatusBadRequest, "missing_title"},
	{service.ErrMissingID, http.StatusBadRequest, "missing_id"},
	{service.ErrUserNotRegistered, http.StatusBadRequest, "user_not_registered"},
	{service.ErrTrialExpired, http.StatusPaymentRequired, "trial_expired"},
	{service.ErrLeadNotFound, http.StatusNotFound, "not_found"},
	{service.ErrAPIKeyNotFound, http.StatusNotFound, "not_found"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{kv.ErrNotConfigured, http.StatusInternalServerError, "storage_not_configured"},
}

// mapServiceError returns the HTTP status and code for err. Unknown errors
// are server errors; ok is false for them so callers can log.
func mapServiceError(err error) (status int, code string, ok bool) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			return m.status, m.code, true
		}
	}
	return http.StatusInternalServerError, "server_error", false
}

// storageReady writes 500 storage_not_configured when store cannot serve.
func storageReady(w http.ResponseWriter, store kv.Store) bool {
	if kv.IsConfigured(store) {
		return true
	}
	writeError(w, http.StatusInternalServerError, "storage_not_configured")
	return false
}

// writeBodyError reports an unreadable or malformed JSON body.
func writeBodyError(w http.ResponseWriter, err error) {
	if isTooLarge(err) {
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large")
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_json")
}

// handleServiceError maps err to a response, logging unexpected failures.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, tag string, err error) {
	status, code, known := mapServiceError(err)
	if !known {
		logger.Error(tag, slog.String("error", err.Error()))
	}
	writeError(w, status, code)
}
