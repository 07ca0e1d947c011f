// Package main is the entrypoint for the Looply API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/looply/looply/internal/cache"
	"github.com/looply/looply/internal/config"
	"github.com/looply/looply/internal/engine"
	"github.com/looply/looply/internal/handler"
	"github.com/looply/looply/internal/intake"
	"github.com/looply/looply/internal/kv"
	"github.com/looply/looply/internal/mail"
	"github.com/looply/looply/internal/metrics"
	"github.com/looply/looply/internal/middleware"
	"github.com/looply/looply/internal/ratelimit"
	"github.com/looply/looply/internal/repository"
	"github.com/looply/looply/internal/server"
	"github.com/looply/looply/internal/service"
)

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize Redis when a URL is set; the redis KV driver and the redis
	// rate limit backend both need it.
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", cache.RedactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		logger.Info("connected to Redis")
	}

	// Initialize key-value storage
	store, err := newStore(ctx, cfg, cacheClient)
	if err != nil {
		logger.Error(
			"failed to initialize storage",
			slog.String("driver", cfg.KVDriver),
			slog.String("error", sanitizeError(err, cfg.DatabaseURL, cfg.KVRestToken)),
		)
		os.Exit(1)
	}
	if !kv.IsConfigured(store) {
		logger.Warn("storage not configured; app endpoints will answer storage_not_configured",
			slog.String("driver", cfg.KVDriver),
		)
	}

	// Initialize services
	metricsRecorder := metrics.NewInMemory()
	repo := repository.New(store)
	leadService := service.NewLeadService(repo, metricsRecorder)
	apiKeyService := service.NewAPIKeyService(repo, metricsRecorder)

	sender, err := mail.New(mailOptions(cfg))
	if err != nil {
		if !errors.Is(err, mail.ErrNotConfigured) {
			logger.Error("failed to initialize email provider", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Warn("email provider not configured; demo requests will fail",
			slog.String("provider", cfg.EmailProvider),
		)
	}
	intakeService := intake.NewService(sender, intake.Config{
		To:          cfg.LeadRecipient(),
		From:        cfg.LeadSender(),
		MinFillTime: cfg.IntakeMinFillTime,
	}, metricsRecorder, logger)

	engineClient := engine.NewClient(cfg.EngineBaseURL(), engine.NewHTTPClient(cfg.EngineTimeout), metricsRecorder)
	if !engineClient.Configured() {
		logger.Warn("ENGINE_API_URL not set; dashboard login and proxy are disabled")
	}

	limiter, sweeper := newLimiter(cfg, cacheClient, logger)

	// Initialize handlers
	var cacheChecker handler.HealthChecker
	if cacheClient != nil {
		cacheChecker = cacheClient
	}
	handlers := routeHandlers{
		base:     handler.New(),
		health:   handler.NewHealthHandler(store, cacheChecker),
		metrics:  handler.NewMetricsHandler(metricsRecorder),
		leads:    handler.NewLeadHandler(leadService, store, logger),
		apiKeys:  handler.NewAPIKeyHandler(apiKeyService, store, logger),
		webhook:  handler.NewWebhookHandler(leadService, logger),
		engine:   handler.NewEngineHandler(engineClient, engine.NewProxy(engineClient, cfg.SessionCookieName, logger), cfg.SessionCookieName, cfg.IsProduction(), logger),
		intake:   handler.NewIntakeHandler(intakeService, cfg.SupportEmail, logger),
		redirect: handler.NewRedirectHandler(handler.MarketingRedirects),
	}

	// Setup router
	r := setupRouter(handlers, routerDeps{
		store:   store,
		keys:    apiKeyService,
		limiter: limiter,
		metrics: metricsRecorder,
	}, cfg, logger)

	// Create and run server
	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error { return cacheClient.Close() })
	}
	srv.OnShutdown("kv", func(context.Context) error { return store.Close() })
	if sweeper != nil {
		srv.Go("ratelimit-sweeper", func(ctx context.Context) {
			sweeper.Run(ctx, ratelimit.DefaultSweepInterval)
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"kv_driver", cfg.KVDriver,
		"rate_limit_backend", cfg.RateLimitBackend,
		"email_provider", providerName(sender),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newStore opens the KV driver selected by KV_DRIVER.
func newStore(ctx context.Context, cfg *config.Config, cacheClient *cache.Cache) (kv.Store, error) {
	switch cfg.KVDriver {
	case config.KVDriverMemory:
		return kv.NewMemory(), nil
	case config.KVDriverRedis:
		if cacheClient == nil {
			return nil, errors.New("redis driver selected without a Redis connection")
		}
		return kv.NewRedis(cacheClient.Client()), nil
	case config.KVDriverPostgres:
		return kv.NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return kv.NewREST(cfg.KVRestURL, cfg.KVRestToken, kv.NewHTTPClient(cfg.KVTimeout)), nil
	}
}

// newLimiter returns the intake rate limiter, or nil when limiting is off.
// The in-memory limiter is also returned as the sweeper to run in the
// background.
func newLimiter(cfg *config.Config, cacheClient *cache.Cache, logger *slog.Logger) (ratelimit.Limiter, *ratelimit.Memory) {
	if !cfg.RateLimitEnabled {
		return nil, nil
	}
	if cfg.RateLimitBackend == "redis" && cacheClient != nil {
		return cache.NewRateLimiter(cacheClient, cfg.RateLimitMax, cfg.RateLimitWindow, logger), nil
	}
	m := ratelimit.NewMemory(cfg.RateLimitMax, cfg.RateLimitWindow)
	return m, m
}

func mailOptions(cfg *config.Config) mail.Options {
	return mail.Options{
		Provider:       cfg.EmailProvider,
		ResendAPIKey:   cfg.ResendAPIKey,
		ResendEndpoint: cfg.ResendEndpoint,
		SMTPHost:       cfg.SMTPHost,
		SMTPPort:       cfg.SMTPPort,
		SMTPSecure:     cfg.SMTPSecure,
		SMTPUser:       cfg.SMTPUser,
		SMTPPass:       cfg.SMTPPass,
	}
}

func providerName(sender mail.Sender) string {
	if sender == nil {
		return "unset"
	}
	return sender.Provider()
}

// routeHandlers groups the HTTP handlers mounted by setupRouter.
type routeHandlers struct {
	base     *handler.Handler
	health   *handler.HealthHandler
	metrics  *handler.MetricsHandler
	leads    *handler.LeadHandler
	apiKeys  *handler.APIKeyHandler
	webhook  *handler.WebhookHandler
	engine   *handler.EngineHandler
	intake   *handler.IntakeHandler
	redirect *handler.RedirectHandler
}

// routerDeps are the non-handler dependencies of the middleware stack.
type routerDeps struct {
	store   kv.Store
	keys    middleware.KeyAuthenticator
	limiter ratelimit.Limiter
	metrics metrics.Recorder
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(h routeHandlers, deps routerDeps, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger, cfg.IsDevelopment()))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Health and metrics endpoints (no auth required)
	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	r.Get("/metrics", h.metrics.Metrics)

	// Legacy marketing paths
	for _, path := range h.redirect.Paths() {
		r.Get(path, h.redirect.Redirect)
	}

	// Public demo request form
	r.With(middleware.RateLimit(middleware.RateLimitConfig{
		Logger:  logger,
		Limiter: deps.limiter,
		Metrics: deps.metrics,
	})).Post("/api/lead", h.intake.Submit)

	// Engine session and proxy
	r.Post("/api/auth/login", h.engine.Login)
	r.Post("/api/auth/logout", h.engine.Logout)
	r.Post("/api/keys/create", h.engine.CreateKey)
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		r.Method(m, "/api/engine/*", http.HandlerFunc(h.engine.Proxy))
	}

	// CRM routes, addressed by owner email
	r.Route("/api/app", func(r chi.Router) {
		r.Post("/register", h.leads.Register)

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", h.leads.List)
			r.Post("/", h.leads.Create)
			r.Get("/{id}", h.leads.Get)
			r.Get("/{id}/events", h.leads.ListEvents)
			r.Post("/{id}/events", h.leads.CreateEvent)
		})

		r.Get("/api-keys", h.apiKeys.List)
		r.Post("/api-keys", h.apiKeys.Create)
		r.Delete("/api-keys", h.apiKeys.Revoke)
	})

	// Machine-to-machine lead ingestion
	authCfg := middleware.AuthConfig{
		Logger:     logger,
		Keys:       deps.keys,
		Configured: func() bool { return kv.IsConfigured(deps.store) },
	}
	r.With(middleware.APIKeyAuth(authCfg)).Post("/api/webhook/leads", h.webhook.IngestLead)

	// 404 and 405 handlers
	r.NotFound(h.base.NotFound)
	r.MethodNotAllowed(h.base.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

// sanitizeError removes connection secrets from err before it is logged.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := "[redacted]"
		if strings.Contains(secret, "://") {
			redacted = cache.RedactURL(secret)
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
