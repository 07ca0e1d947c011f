package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/looply/looply/internal/model"
)

func TestSetSessionCookie(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		secure bool
	}{
		{"development", false},
		{"production", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			SetSessionCookie(rec, DefaultSessionCookie, "tok_123", tt.secure)

			cookies := rec.Result().Cookies()
			if len(cookies) != 1 {
				t.Fatalf("expected 1 cookie, got %d", len(cookies))
			}
			c := cookies[0]
			if c.Name != DefaultSessionCookie || c.Value != "tok_123" {
				t.Errorf("unexpected cookie %s=%s", c.Name, c.Value)
			}
			if !c.HttpOnly {
				t.Error("cookie must be httponly")
			}
			if c.SameSite != http.SameSiteLaxMode {
				t.Errorf("SameSite = %v, want Lax", c.SameSite)
			}
			if c.Path != "/" {
				t.Errorf("Path = %q, want /", c.Path)
			}
			if c.Secure != tt.secure {
				t.Errorf("Secure = %v, want %v", c.Secure, tt.secure)
			}
		})
	}
}

func TestClearSessionCookie(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	ClearSessionCookie(rec, DefaultSessionCookie, false)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].MaxAge >= 0 || cookies[0].Value != "" {
		t.Errorf("cookie should be expired, got MaxAge=%d Value=%q", cookies[0].MaxAge, cookies[0].Value)
	}
}

func TestSessionToken(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := SessionToken(req, DefaultSessionCookie); got != "" {
		t.Errorf("expected empty token, got %q", got)
	}

	req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: "abc"})
	if got := SessionToken(req, DefaultSessionCookie); got != "abc" {
		t.Errorf("SessionToken = %q, want abc", got)
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"BEARER abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		if got := BearerToken(req); got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestKeyContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, ok := KeyFromContext(ctx); ok || OwnerFromContext(ctx) != "" {
		t.Fatal("empty context should carry no key")
	}
	if _, ok := KeyFromContext(WithKey(ctx, nil)); ok {
		t.Error("nil key should not count as authenticated")
	}

	ctx = WithKey(ctx, &model.AuthContext{KeyID: "k1", KeyPrefix: "looply_abcde", OwnerEmail: "o@example.com"})
	key, ok := KeyFromContext(ctx)
	if !ok || key.KeyID != "k1" {
		t.Errorf("KeyFromContext = %+v, %v", key, ok)
	}
	if got := OwnerFromContext(ctx); got != "o@example.com" {
		t.Errorf("OwnerFromContext = %q", got)
	}
}
