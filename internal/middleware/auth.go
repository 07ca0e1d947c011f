package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/looply/looply/internal/auth"
	"github.com/looply/looply/internal/model"
	"github.com/looply/looply/internal/service"
)

const (
	// minAuthDuration is the minimum time to spend on auth to prevent timing attacks.
	minAuthDuration = 200 * time.Millisecond

	// APIKeyHeader carries the secret when no bearer token is sent.
	APIKeyHeader = "X-API-Key"
	// APIKeyIDHeader names the key record to verify the secret against.
	APIKeyIDHeader = "X-API-Key-Id"
)

// KeyAuthenticator resolves an API key id and secret to its owner.
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, keyID, secret string) (*model.AuthContext, error)
}

// AuthConfig holds configuration for the API key middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Keys   KeyAuthenticator
	// Configured reports whether the key store can serve requests.
	// Nil means always configured.
	Configured func() bool
	// MinDuration overrides minAuthDuration; tests set it to zero.
	MinDuration *time.Duration
}

// APIKeyAuth returns a middleware that authenticates machine requests.
// The secret comes from "Authorization: Bearer" or X-API-Key and the key id
// from X-API-Key-Id. All credential failures produce the same 401.
func APIKeyAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	floor := minAuthDuration
	if cfg.MinDuration != nil {
		floor = *cfg.MinDuration
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Configured != nil && !cfg.Configured() {
				writeError(w, r, http.StatusInternalServerError, "storage_not_configured")
				return
			}

			authCtx, err := authenticate(r, cfg.Keys, floor)
			if err != nil {
				if errors.Is(err, service.ErrUnauthorized) {
					cfg.Logger.Warn("authentication failed",
						slog.String("ip", r.RemoteAddr),
						slog.String("endpoint", r.Method+" "+r.URL.Path),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeError(w, r, http.StatusUnauthorized, "unauthorized")
					return
				}
				cfg.Logger.Error("api key lookup failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, r, http.StatusInternalServerError, "server_error")
				return
			}

			cfg.Logger.Info("authentication successful",
				slog.String("key_id", authCtx.KeyID),
				slog.String("key_prefix", authCtx.KeyPrefix),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.WithKey(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate verifies the request credentials, padding the elapsed time
// to floor whatever the outcome.
func authenticate(r *http.Request, keys KeyAuthenticator, floor time.Duration) (*model.AuthContext, error) {
	start := time.Now()
	defer func() {
		if elapsed := time.Since(start); elapsed < floor {
			time.Sleep(floor - elapsed)
		}
	}()

	secret, keyID := extractAPIKey(r)
	return keys.Authenticate(r.Context(), keyID, secret)
}

// extractAPIKey returns the secret and key id sent with the request.
func extractAPIKey(r *http.Request) (secret, keyID string) {
	secret = auth.BearerToken(r)
	if secret == "" {
		secret = strings.TrimSpace(r.Header.Get(APIKeyHeader))
	}
	return secret, strings.TrimSpace(r.Header.Get(APIKeyIDHeader))
}
