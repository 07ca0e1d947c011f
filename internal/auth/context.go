package auth

import (
	"context"

	"github.com/looply/looply/internal/model"
)

type keyContextKey struct{}

// WithKey returns a copy of ctx carrying the identity of a verified API key.
func WithKey(ctx context.Context, key *model.AuthContext) context.Context {
	return context.WithValue(ctx, keyContextKey{}, key)
}

// KeyFromContext returns the API key identity set by WithKey.
func KeyFromContext(ctx context.Context) (*model.AuthContext, bool) {
	key, ok := ctx.Value(keyContextKey{}).(*model.AuthContext)
	return key, ok && key != nil
}

// OwnerFromContext returns the account owning the request's API key, or "".
func OwnerFromContext(ctx context.Context) string {
	if key, ok := KeyFromContext(ctx); ok {
		return key.OwnerEmail
	}
	return ""
}
