package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/looply/looply/internal/auth"
	"github.com/looply/looply/internal/kv"
	"github.com/looply/looply/internal/metrics"
	"github.com/looply/looply/internal/repository"
	"github.com/looply/looply/internal/service"
	"github.com/looply/looply/internal/testutil"
)

func newAPIKeyRouter(t *testing.T, store kv.Store) (chi.Router, *repository.Repository) {
	t.Helper()

	repo := repository.New(store)
	h := NewAPIKeyHandler(service.NewAPIKeyService(repo, metrics.NewNoop()), store, testLogger())

	r := chi.NewRouter()
	r.Get("/api/app/api-keys", h.List)
	r.Post("/api/app/api-keys", h.Create)
	r.Delete("/api/app/api-keys", h.Revoke)
	return r, repo
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAPIKeyHandler_Lifecycle(t *testing.T) {
	r, repo := newAPIKeyRouter(t, kv.NewMemory())
	testutil.SeedUser(t, repo, testOwner)

	rec := serve(r, jsonRequest(http.MethodPost, "/api/app/api-keys", `{"ownerEmail":"Owner@Example.com"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)
	apiKey, _ := created["apiKey"].(string)
	id, _ := created["id"].(string)
	if !strings.HasPrefix(apiKey, auth.KeyPrefix) {
		t.Errorf("unexpected key %q", apiKey)
	}
	if created["prefix"] != apiKey[:auth.KeyPrefixLen] {
		t.Errorf("prefix %v does not match key", created["prefix"])
	}
	if id == "" || created["ok"] != true {
		t.Fatalf("unexpected create response: %v", created)
	}

	rec = serve(r, jsonRequest(http.MethodGet, "/api/app/api-keys?ownerEmail=owner@example.com", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), apiKey) {
		t.Error("list response must not contain the plaintext key")
	}
	items := decodeBody(t, rec)["items"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["id"] != id {
		t.Fatalf("unexpected items: %v", items)
	}

	rec = serve(r, jsonRequest(http.MethodDelete, "/api/app/api-keys?ownerEmail=owner@example.com&id=+"+id+"+", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Revoking again is accepted.
	rec = serve(r, jsonRequest(http.MethodDelete, "/api/app/api-keys?ownerEmail=owner@example.com&id="+id, ""))
	if rec.Code != http.StatusOK {
		t.Errorf("expected repeated revoke to succeed, got %d", rec.Code)
	}

	rec = serve(r, jsonRequest(http.MethodGet, "/api/app/api-keys?ownerEmail=owner@example.com", ""))
	if items := decodeBody(t, rec)["items"].([]any); len(items) != 0 {
		t.Errorf("expected revoked key to be hidden, got %v", items)
	}
}

func TestAPIKeyHandler_Errors(t *testing.T) {
	r, repo := newAPIKeyRouter(t, kv.NewMemory())
	testutil.SeedExpiredUser(t, repo, "late@example.com")

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
		wantCode   string
	}{
		{"list without owner", jsonRequest(http.MethodGet, "/api/app/api-keys", ""), http.StatusBadRequest, "missing_ownerEmail"},
		{"create invalid json", jsonRequest(http.MethodPost, "/api/app/api-keys", `[`), http.StatusBadRequest, "invalid_json"},
		{"create without owner", jsonRequest(http.MethodPost, "/api/app/api-keys", `{}`), http.StatusBadRequest, "missing_ownerEmail"},
		{"create unregistered", jsonRequest(http.MethodPost, "/api/app/api-keys", `{"ownerEmail":"ghost@example.com"}`), http.StatusBadRequest, "user_not_registered"},
		{"create expired", jsonRequest(http.MethodPost, "/api/app/api-keys", `{"ownerEmail":"late@example.com"}`), http.StatusPaymentRequired, "trial_expired"},
		{"revoke without id", jsonRequest(http.MethodDelete, "/api/app/api-keys?ownerEmail=late@example.com&id=%20", ""), http.StatusBadRequest, "missing_id"},
		{"revoke unknown", jsonRequest(http.MethodDelete, "/api/app/api-keys?ownerEmail=late@example.com&id=nope", ""), http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(r, tt.req)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if body := decodeBody(t, rec); body["error"] != tt.wantCode {
				t.Errorf("expected error %q, got %v", tt.wantCode, body["error"])
			}
		})
	}
}

func TestAPIKeyHandler_RevokeForeignKey(t *testing.T) {
	r, repo := newAPIKeyRouter(t, kv.NewMemory())
	testutil.SeedUser(t, repo, testOwner)
	testutil.SeedUser(t, repo, "other@example.com")

	rec := serve(r, jsonRequest(http.MethodPost, "/api/app/api-keys", `{"ownerEmail":"owner@example.com"}`))
	id := decodeBody(t, rec)["id"].(string)

	rec = serve(r, jsonRequest(http.MethodDelete, "/api/app/api-keys?ownerEmail=other@example.com&id="+id, ""))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestAPIKeyHandler_StorageNotConfigured(t *testing.T) {
	r, _ := newAPIKeyRouter(t, kv.NewREST("", "", nil))

	rec := serve(r, jsonRequest(http.MethodGet, "/api/app/api-keys?ownerEmail=a@b.co", ""))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "storage_not_configured" {
		t.Errorf("unexpected body: %v", body)
	}
}
