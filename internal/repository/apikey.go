package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/looply/looply/internal/kv"
	"github.com/looply/looply/internal/model"
)

// Common errors for API key repository operations.
var (
	ErrAPIKeyNotFound = errors.New("API key not found")
)

// CreateAPIKey stores a key record and prepends it to the owner's index.
func (r *Repository) CreateAPIKey(ctx context.Context, key *model.APIKeyRecord) error {
	if err := r.putIndexed(ctx, apiKeyKey(key.ID), apiKeysByUserKey(key.OwnerEmail), key.ID, key); err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}
	return nil
}

// GetAPIKeyByID retrieves an API key by its ID.
func (r *Repository) GetAPIKeyByID(ctx context.Context, id string) (*model.APIKeyRecord, error) {
	var key model.APIKeyRecord
	found, err := kv.GetJSON(ctx, r.store, apiKeyKey(id), &key)
	if err != nil {
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}
	if !found {
		return nil, ErrAPIKeyNotFound
	}
	return &key, nil
}

// ListAPIKeysByOwner returns index entries 0..stop of the owner's most recent key
// records, revoked ones included.
func (r *Repository) ListAPIKeysByOwner(ctx context.Context, ownerEmail string, stop int64) ([]model.APIKeyRecord, error) {
	ids, err := r.store.LRange(ctx, apiKeysByUserKey(ownerEmail), 0, stop)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}

	keys, err := loadRecords[model.APIKeyRecord](ctx, r.store, ids, apiKeyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	return keys, nil
}

// SaveRevokedAPIKey persists a revoked record and moves its id to the head
// of the owner's index, dropping any duplicate entries.
// The three writes are not atomic; concurrent revocations of the same key
// may interleave.
func (r *Repository) SaveRevokedAPIKey(ctx context.Context, key *model.APIKeyRecord) error {
	if err := kv.SetJSON(ctx, r.store, apiKeyKey(key.ID), key); err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}

	index := apiKeysByUserKey(key.OwnerEmail)
	if _, err := r.store.LRem(ctx, index, 0, key.ID); err != nil {
		return fmt.Errorf("failed to reindex API key: %w", err)
	}
	if _, err := r.store.LPush(ctx, index, key.ID); err != nil {
		return fmt.Errorf("failed to reindex API key: %w", err)
	}
	return nil
}
