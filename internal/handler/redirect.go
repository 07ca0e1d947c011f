package handler

import (
	"net/http"
)

// MarketingRedirects maps legacy marketing paths to their canonical pages.
var MarketingRedirects = map[string]string{
	"/terms":   "/terms-and-conditions",
	"/privacy": "/privacy-policy",
	"/refunds": "/refund-policy",
}

// RedirectHandler serves permanent redirects for renamed marketing pages.
type RedirectHandler struct {
	targets map[string]string
}

// NewRedirectHandler creates a RedirectHandler for targets, keyed by path.
func NewRedirectHandler(targets map[string]string) *RedirectHandler {
	return &RedirectHandler{targets: targets}
}

// Paths returns the paths the handler redirects.
func (h *RedirectHandler) Paths() []string {
	paths := make([]string, 0, len(h.targets))
	for p := range h.targets {
		paths = append(paths, p)
	}
	return paths
}

// Redirect handles GET on a legacy path with 308, keeping the query string.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	target, ok := h.targets[r.URL.Path]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusPermanentRedirect)
}
