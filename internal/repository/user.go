package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/looply/looply/internal/kv"
	"github.com/looply/looply/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
)

// GetUser loads a user by normalized email.
func (r *Repository) GetUser(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	found, err := kv.GetJSON(ctx, r.store, userKey(email), &user)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

// SaveUser writes the full user document, replacing any previous version.
func (r *Repository) SaveUser(ctx context.Context, user *model.User) error {
	if err := kv.SetJSON(ctx, r.store, userKey(user.Email), user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}
