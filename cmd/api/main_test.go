package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/looply/looply/internal/config"
	"github.com/looply/looply/internal/engine"
	"github.com/looply/looply/internal/handler"
	"github.com/looply/looply/internal/intake"
	"github.com/looply/looply/internal/kv"
	"github.com/looply/looply/internal/metrics"
	"github.com/looply/looply/internal/ratelimit"
	"github.com/looply/looply/internal/repository"
	"github.com/looply/looply/internal/service"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:             "development",
		KVDriver:           config.KVDriverMemory,
		SessionCookieName:  "looply_session",
		SupportEmail:       "support@looply.test",
		RateLimitEnabled:   true,
		RateLimitBackend:   "memory",
		RateLimitMax:       2,
		RateLimitWindow:    time.Minute,
		CORSAllowedOrigins: "https://looplycrm.com",
		MaxRequestBodySize: 1 << 10,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := kv.NewMemory()
	rec := metrics.NewInMemory()
	repo := repository.New(store)
	leads := service.NewLeadService(repo, rec)
	keys := service.NewAPIKeyService(repo, rec)
	engineClient := engine.NewClient("", nil, rec)
	limiter, _ := newLimiter(cfg, nil, logger)

	r := setupRouter(routeHandlers{
		base:     handler.New(),
		health:   handler.NewHealthHandler(store, nil),
		metrics:  handler.NewMetricsHandler(rec),
		leads:    handler.NewLeadHandler(leads, store, logger),
		apiKeys:  handler.NewAPIKeyHandler(keys, store, logger),
		webhook:  handler.NewWebhookHandler(leads, logger),
		engine:   handler.NewEngineHandler(engineClient, engine.NewProxy(engineClient, cfg.SessionCookieName, logger), cfg.SessionCookieName, false, logger),
		intake:   handler.NewIntakeHandler(intake.NewService(nil, intake.Config{}, rec, logger), cfg.SupportEmail, logger),
		redirect: handler.NewRedirectHandler(handler.MarketingRedirects),
	}, routerDeps{store: store, keys: keys, limiter: limiter, metrics: rec}, cfg, logger)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, header map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return resp, decoded
}

func TestRouter_LeadFlow(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp, body := do(t, srv, http.MethodPost, "/api/app/register", `{"email":"owner@example.com","name":"Owner"}`, nil)
	if resp.StatusCode != http.StatusOK || body["ok"] != true {
		t.Fatalf("register: %d %v", resp.StatusCode, body)
	}

	resp, body = do(t, srv, http.MethodPost, "/api/app/leads",
		`{"ownerEmail":"owner@example.com","name":"Test Lead","email":"lead@example.com","origin":"test"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create lead: %d %v", resp.StatusCode, body)
	}
	leadID := body["lead"].(map[string]any)["id"].(string)

	resp, body = do(t, srv, http.MethodGet, "/api/app/leads?ownerEmail=owner@example.com", "", nil)
	if resp.StatusCode != http.StatusOK || len(body["items"].([]any)) != 1 {
		t.Fatalf("list leads: %d %v", resp.StatusCode, body)
	}

	resp, body = do(t, srv, http.MethodGet, "/api/app/leads/"+leadID+"/events?ownerEmail=owner@example.com", "", nil)
	if resp.StatusCode != http.StatusOK || len(body["items"].([]any)) != 2 {
		t.Fatalf("list events: %d %v", resp.StatusCode, body)
	}

	// Machine ingestion with a freshly issued key.
	resp, body = do(t, srv, http.MethodPost, "/api/app/api-keys", `{"ownerEmail":"owner@example.com"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create key: %d %v", resp.StatusCode, body)
	}
	headers := map[string]string{
		"Authorization": "Bearer " + body["apiKey"].(string),
		"X-API-Key-Id":  body["id"].(string),
		"X-Request-ID":  "req-123",
	}

	resp, body = do(t, srv, http.MethodPost, "/api/webhook/leads", `{"name":"Hook Lead","email":"hook@example.com"}`, headers)
	if resp.StatusCode != http.StatusOK || body["requestId"] != "req-123" {
		t.Fatalf("webhook: %d %v", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") != "req-123" {
		t.Errorf("expected request id echoed, got %q", resp.Header.Get("X-Request-ID"))
	}

	resp, body = do(t, srv, http.MethodGet, "/api/app/leads?ownerEmail=owner@example.com", "", nil)
	if len(body["items"].([]any)) != 2 {
		t.Errorf("expected 2 leads after webhook, got %v", body["items"])
	}

	resp, _ = do(t, srv, http.MethodGet, "/metrics", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics: %d", resp.StatusCode)
	}
}

func TestRouter_WebhookRequiresKey(t *testing.T) {
	srv := newTestServer(t, testConfig())

	start := time.Now()
	resp, body := do(t, srv, http.MethodPost, "/api/webhook/leads", `{}`, nil)
	if resp.StatusCode != http.StatusUnauthorized || body["error"] != "unauthorized" {
		t.Fatalf("expected 401 unauthorized, got %d %v", resp.StatusCode, body)
	}
	if time.Since(start) < 150*time.Millisecond {
		t.Error("expected failed auth to be padded")
	}
}

func TestRouter_IntakeRateLimited(t *testing.T) {
	srv := newTestServer(t, testConfig())
	header := map[string]string{"X-Forwarded-For": "198.51.100.7"}

	// Honeypot submissions succeed without a mail provider.
	for i := 0; i < 2; i++ {
		resp, body := do(t, srv, http.MethodPost, "/api/lead", `{"website":"x"}`, header)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: %d %v", i+1, resp.StatusCode, body)
		}
	}

	resp, body := do(t, srv, http.MethodPost, "/api/lead", `{"website":"x"}`, header)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if body["message"] != "Too many requests. Please try again in a minute." {
		t.Errorf("unexpected body: %v", body)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	resp, body = do(t, srv, http.MethodPost, "/api/lead",
		`{"name":"Ada","email":"ada@analytical.co","message":"Hello there"}`,
		map[string]string{"X-Forwarded-For": "198.51.100.8"})
	if resp.StatusCode != http.StatusInternalServerError ||
		body["message"] != "We couldn’t send your request right now. Please email support@looply.test." {
		t.Errorf("expected misconfigured delivery, got %d %v", resp.StatusCode, body)
	}
}

func TestRouter_Fallbacks(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp, body := do(t, srv, http.MethodGet, "/nope", "", nil)
	if resp.StatusCode != http.StatusNotFound || body["error"] != "not_found" {
		t.Errorf("expected 404 not_found, got %d %v", resp.StatusCode, body)
	}

	resp, body = do(t, srv, http.MethodPut, "/api/lead", `{}`, nil)
	if resp.StatusCode != http.StatusMethodNotAllowed || body["error"] != "method_not_allowed" {
		t.Errorf("expected 405, got %d %v", resp.StatusCode, body)
	}

	for _, m := range []string{http.MethodOptions, http.MethodTrace} {
		resp, body = do(t, srv, m, "/api/engine/v1/runs", "", nil)
		if resp.StatusCode != http.StatusMethodNotAllowed || body["error"] != "method_not_allowed" {
			t.Errorf("%s /api/engine: expected 405, got %d %v", m, resp.StatusCode, body)
		}
	}

	resp, _ = do(t, srv, http.MethodGet, "/privacy?ref=footer", "", nil)
	if resp.StatusCode != http.StatusPermanentRedirect || resp.Header.Get("Location") != "/privacy-policy?ref=footer" {
		t.Errorf("expected 308 to /privacy-policy, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, body = do(t, srv, http.MethodPost, "/api/auth/login", `{"email":"a@b.co"}`, nil)
	if resp.StatusCode != http.StatusInternalServerError || body["error"] != engine.CodeNotConfigured {
		t.Errorf("expected engine_not_configured, got %d %v", resp.StatusCode, body)
	}

	resp, body = do(t, srv, http.MethodPost, "/api/app/register", `{"email":"`+strings.Repeat("a", 2048)+`@b.co"}`, nil)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d %v", resp.StatusCode, body)
	}
}

func TestRouter_Headers(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp, _ := do(t, srv, http.MethodGet, "/healthz", "", map[string]string{"Origin": "https://looplycrm.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "https://looplycrm.com" {
		t.Errorf("unexpected CORS origin %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}

	resp, _ = do(t, srv, http.MethodOptions, "/api/lead", "", map[string]string{
		"Origin":                        "https://evil.example",
		"Access-Control-Request-Method": "POST",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected disallowed preflight to be rejected, got %d", resp.StatusCode)
	}
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	store, err := newStore(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := store.(*kv.Memory); !ok {
		t.Errorf("expected memory store, got %T", store)
	}

	cfg.KVDriver = config.KVDriverREST
	store, err = newStore(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("rest: %v", err)
	}
	if kv.IsConfigured(store) {
		t.Error("REST store without credentials must report unconfigured")
	}

	cfg.KVDriver = config.KVDriverRedis
	if _, err := newStore(ctx, cfg, nil); err == nil {
		t.Error("expected redis driver without connection to fail")
	}
}

func TestNewLimiter(t *testing.T) {
	cfg := testConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	limiter, sweeper := newLimiter(cfg, nil, logger)
	if limiter == nil || sweeper == nil {
		t.Fatal("expected memory limiter with sweeper")
	}
	if _, ok := limiter.(*ratelimit.Memory); !ok {
		t.Errorf("expected *ratelimit.Memory, got %T", limiter)
	}

	cfg.RateLimitEnabled = false
	if limiter, sweeper := newLimiter(cfg, nil, logger); limiter != nil || sweeper != nil {
		t.Error("expected no limiter when disabled")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSanitizeError(t *testing.T) {
	dsn := "postgres://looply:s3cret@db:5432/looply"
	err := errors.New("dial " + dsn + " failed: password=s3cret")

	got := sanitizeError(err, dsn, "tok_abc")
	if strings.Contains(got, "s3cret") {
		t.Errorf("secret leaked: %s", got)
	}
	if !strings.Contains(got, "postgres://looply:xxxxx@db:5432/looply") {
		t.Errorf("expected redacted URL, got %s", got)
	}

	got = sanitizeError(errors.New("bad token tok_abc"), "tok_abc")
	if got != "bad token [redacted]" {
		t.Errorf("unexpected output %q", got)
	}

	if sanitizeError(nil) != "" {
		t.Error("expected empty string for nil error")
	}
}
