// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/looply/looply/internal/model"
	"github.com/looply/looply/internal/repository"
)

// Service errors.
var (
	ErrMissingOwner      = errors.New("missing owner email")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidName       = errors.New("invalid name")
	ErrUserNotRegistered = errors.New("user not registered")
	ErrTrialExpired      = errors.New("trial expired")
	ErrLeadNotFound      = errors.New("lead not found")
	ErrMissingType       = errors.New("missing event type")
	ErrMissingTitle      = errors.New("missing event title")
	ErrMissingID         = errors.New("missing id")
	ErrAPIKeyNotFound    = errors.New("API key not found")
	ErrUnauthorized      = errors.New("unauthorized")
)

// Pagination defaults.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ParsePage converts raw cursor and limit query values.
// A missing, malformed or negative cursor starts at 0. A missing or malformed
// limit becomes DefaultPageLimit; any parsed limit is clamped to [1, MaxPageLimit].
func ParsePage(cursorRaw, limitRaw string) (cursor, limit int64) {
	cursor, err := strconv.ParseInt(cursorRaw, 10, 64)
	if err != nil || cursor < 0 {
		cursor = 0
	}

	limit, err = strconv.ParseInt(limitRaw, 10, 64)
	if err != nil {
		limit = DefaultPageLimit
	}
	return cursor, min(max(limit, 1), MaxPageLimit)
}

// activeUser loads the owner and checks that their trial is still running.
func activeUser(ctx context.Context, repo *repository.Repository, email string, now time.Time) (*model.User, error) {
	user, err := repo.GetUser(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotRegistered
		}
		return nil, err
	}
	if user.TrialExpired(now) {
		return nil, ErrTrialExpired
	}
	return user, nil
}
