// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// KV drivers.
const (
	KVDriverREST     = "rest"
	KVDriverRedis    = "redis"
	KVDriverPostgres = "postgres"
	KVDriverMemory   = "memory"
)

// Email providers.
const (
	EmailProviderResend = "resend"
	EmailProviderSMTP   = "smtp"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts. WriteTimeout must cover the slowest Engine call.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"35s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Key-value storage
	KVDriver    string        `env:"KV_DRIVER" envDefault:"rest"`
	KVRestURL   string        `env:"KV_REST_API_URL"`
	KVRestToken string        `env:"KV_REST_API_TOKEN"`
	KVTimeout   time.Duration `env:"KV_TIMEOUT" envDefault:"5s"`
	RedisURL    string        `env:"REDIS_URL"`
	DatabaseURL string        `env:"DATABASE_URL"`

	// Engine
	EngineAPIURL       string        `env:"ENGINE_API_URL"`
	PublicEngineAPIURL string        `env:"NEXT_PUBLIC_ENGINE_API_URL"`
	EngineTimeout      time.Duration `env:"ENGINE_TIMEOUT" envDefault:"30s"`

	// Session
	SessionCookieName string `env:"SESSION_COOKIE_NAME" envDefault:"looply_session"`

	// Email delivery
	EmailProvider  string `env:"EMAIL_PROVIDER"`
	ResendAPIKey   string `env:"RESEND_API_KEY"`
	ResendEndpoint string `env:"RESEND_API_URL" envDefault:"https://api.resend.com/emails"`
	SMTPHost       string `env:"SMTP_HOST"`
	SMTPPort       int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPSecure     bool   `env:"SMTP_SECURE" envDefault:"false"`
	SMTPUser       string `env:"SMTP_USER"`
	SMTPPass       string `env:"SMTP_PASS"`
	SMTPFrom       string `env:"SMTP_FROM"`
	LeadToEmail    string `env:"LEAD_TO_EMAIL"`
	LeadsToEmail   string `env:"LEADS_TO_EMAIL"`
	LeadsFromEmail string `env:"LEADS_FROM_EMAIL"`
	SupportEmail   string `env:"SUPPORT_EMAIL" envDefault:"support@looplycrm.com"`

	// Lead intake
	IntakeMinFillTime time.Duration `env:"INTAKE_MIN_FILL_TIME" envDefault:"3s"`

	// Rate limiting of the public lead-intake endpoint
	RateLimitEnabled bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitBackend string        `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
	RateLimitMax     int           `env:"RATE_LIMIT_MAX" envDefault:"5"`
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://looplycrm.com,https://app.looplycrm.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// EngineBaseURL returns the Engine base URL without trailing slashes.
// ENGINE_API_URL wins over NEXT_PUBLIC_ENGINE_API_URL.
func (c *Config) EngineBaseURL() string {
	base := strings.TrimSpace(c.EngineAPIURL)
	if base == "" {
		base = strings.TrimSpace(c.PublicEngineAPIURL)
	}
	return strings.TrimRight(base, "/")
}

// LeadRecipient returns the address demo requests are delivered to.
func (c *Config) LeadRecipient() string {
	if v := strings.TrimSpace(c.LeadsToEmail); v != "" {
		return v
	}
	return strings.TrimSpace(c.LeadToEmail)
}

// LeadSender returns the From address for demo request mail.
func (c *Config) LeadSender() string {
	if v := strings.TrimSpace(c.LeadsFromEmail); v != "" {
		return v
	}
	return strings.TrimSpace(c.SMTPFrom)
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks values that env parsing alone cannot catch.
// Missing integration credentials are not errors: handlers report them per request.
func (c *Config) Validate() error {
	switch c.KVDriver {
	case KVDriverREST, KVDriverMemory:
	case KVDriverRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("KV_DRIVER=redis requires REDIS_URL")
		}
	case KVDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("KV_DRIVER=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown KV_DRIVER %q", c.KVDriver)
	}

	switch c.RateLimitBackend {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("RATE_LIMIT_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimitBackend)
	}

	if c.RateLimitMax <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be positive")
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}

	return nil
}

// Load parses environment variables and returns a Config.
// Returns an error if values are malformed.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.KVDriver = strings.ToLower(strings.TrimSpace(cfg.KVDriver))
	cfg.RateLimitBackend = strings.ToLower(strings.TrimSpace(cfg.RateLimitBackend))
	cfg.EmailProvider = strings.ToLower(strings.TrimSpace(cfg.EmailProvider))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
