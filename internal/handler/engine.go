package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/looply/looply/internal/auth"
	"github.com/looply/looply/internal/engine"
)

// EngineHandler fronts the external Engine: dashboard login, the generic
// authenticated proxy and Engine API key issuance.
type EngineHandler struct {
	client       *engine.Client
	proxy        *engine.Proxy
	cookieName   string
	secureCookie bool
	logger       *slog.Logger
}

// NewEngineHandler creates a new EngineHandler. secureCookie marks the
// session cookie Secure and is set in production.
func NewEngineHandler(client *engine.Client, proxy *engine.Proxy, cookieName string, secureCookie bool, logger *slog.Logger) *EngineHandler {
	if cookieName == "" {
		cookieName = auth.DefaultSessionCookie
	}
	return &EngineHandler{
		client:       client,
		proxy:        proxy,
		cookieName:   cookieName,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// Login handles POST /api/auth/login.
func (h *EngineHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.client.Configured() {
		engine.WriteError(w, engine.NotConfiguredError())
		return
	}

	doc, err := readJSON(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request.")
		return
	}
	credentials := json.RawMessage(doc.Raw)
	if !doc.IsObject() {
		credentials = json.RawMessage("{}")
	}

	result, err := h.client.Login(r.Context(), credentials)
	if err != nil {
		var engineErr *engine.Error
		switch {
		case errors.Is(err, engine.ErrTokenMissing):
			h.logger.Error("engine login returned no token")
			writeMessage(w, http.StatusInternalServerError, "Login succeeded but token is missing.")
		case errors.As(err, &engineErr) && engineErr.Code == engine.CodeNetwork:
			h.logger.Warn("engine login unreachable", slog.String("error", err.Error()))
			engine.WriteError(w, engineErr)
		case errors.As(err, &engineErr):
			writeMessage(w, engineErr.Status, engineErr.Message)
		default:
			h.logger.Error("engine login failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "server_error")
		}
		return
	}

	auth.SetSessionCookie(w, h.cookieName, result.Token, h.secureCookie)
	writeJSON(w, http.StatusOK, mergeOK(result.Body.Body))
}

// Logout handles POST /api/auth/logout.
func (h *EngineHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookieName, h.secureCookie)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Proxy handles /api/engine/*.
func (h *EngineHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	h.proxy.Forward(w, r, escapedWildcard(r))
}

// escapedWildcard returns the trailing wildcard of the matched route in its
// escaped form. chi.URLParam yields the decoded path whenever RawPath is
// empty, which would turn an escaped "%2F" into a separator.
func escapedWildcard(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	prefix := strings.TrimSuffix(rctx.RoutePattern(), "*")
	path := r.URL.EscapedPath()
	if prefix == "" || !strings.HasPrefix(path, prefix) {
		return rctx.URLParam("*")
	}
	return strings.TrimPrefix(path, prefix)
}

// CreateKey handles POST /api/keys/create. The caller's Authorization
// header wins over the session cookie.
func (h *EngineHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	if !h.client.Configured() {
		engine.WriteError(w, engine.NotConfiguredError())
		return
	}

	token := r.Header.Get("Authorization")
	if token == "" {
		if session := auth.SessionToken(r, h.cookieName); session != "" {
			token = "Bearer " + session
		}
	}
	if token == "" {
		engine.WriteError(w, &engine.Error{
			Code:    engine.CodeUnauthorized,
			Status:  http.StatusUnauthorized,
			Message: "Missing authorization token.",
		})
		return
	}

	res, err := h.client.CreateAPIKey(r.Context(), token)
	if res == nil {
		var engineErr *engine.Error
		if errors.As(err, &engineErr) {
			engine.WriteError(w, engineErr)
			return
		}
		h.logger.Error("engine key creation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	// Upstream replies are relayed verbatim, errors included.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.Status)
	if json.Valid(res.Body) {
		_, _ = w.Write(res.Body)
		return
	}
	_, _ = io.WriteString(w, "{}")
}

// mergeOK returns {"ok":true} overlaid with the fields of a JSON object body.
func mergeOK(body []byte) map[string]json.RawMessage {
	out := map[string]json.RawMessage{"ok": json.RawMessage("true")}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return out
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}
