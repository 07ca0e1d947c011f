// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/looply/looply/internal/handler/dto"
	"github.com/looply/looply/internal/middleware"
)

// Handler serves the fallback routes.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not_found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Debug("write response failed", slog.String("error", err.Error()))
	}
}

// writeError writes {ok:false, error:code}.
func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, dto.ErrorResponse{Error: code})
}

// writeMessage writes {ok:false, message}.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.ErrorResponse{Message: message})
}

// errInvalidJSON is returned by readJSON for bodies that are not JSON.
var errInvalidJSON = errors.New("invalid json")

// readJSON reads and parses the request body.
func readJSON(r *http.Request) (gjson.Result, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return gjson.Result{}, err
	}
	doc, ok := dto.ParseBody(body)
	if !ok {
		return gjson.Result{}, errInvalidJSON
	}
	return doc, nil
}

// isTooLarge reports whether err came from the body size limit.
func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// requestID returns the id assigned by the RequestID middleware.
func requestID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}
