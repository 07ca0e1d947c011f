package handler

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
)

func TestRedirectHandler_Redirect(t *testing.T) {
	h := NewRedirectHandler(MarketingRedirects)

	tests := []struct {
		path     string
		wantLoc  string
		wantCode int
	}{
		{"/terms", "/terms-and-conditions", http.StatusPermanentRedirect},
		{"/privacy", "/privacy-policy", http.StatusPermanentRedirect},
		{"/refunds?utm_source=mail", "/refund-policy?utm_source=mail", http.StatusPermanentRedirect},
		{"/pricing", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Redirect(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
			if got := rec.Header().Get("Location"); got != tt.wantLoc {
				t.Errorf("expected Location %q, got %q", tt.wantLoc, got)
			}
		})
	}
}

func TestRedirectHandler_Paths(t *testing.T) {
	paths := NewRedirectHandler(MarketingRedirects).Paths()
	sort.Strings(paths)

	want := []string{"/privacy", "/refunds", "/terms"}
	if len(paths) != len(want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("expected %v, got %v", want, paths)
		}
	}
}
