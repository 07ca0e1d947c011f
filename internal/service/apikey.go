package service

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/looply/looply/internal/auth"
	"github.com/looply/looply/internal/metrics"
	"github.com/looply/looply/internal/model"
	"github.com/looply/looply/internal/repository"
	"github.com/looply/looply/internal/validate"
)

// listKeysStop is the last index read when listing keys (201 newest entries).
const listKeysStop = 200

// APIKeyService handles owner API keys used by the lead webhook.
type APIKeyService struct {
	repo    *repository.Repository
	metrics metrics.Recorder
	now     func() time.Time
}

// NewAPIKeyService creates a new APIKeyService.
func NewAPIKeyService(repo *repository.Repository, recorder metrics.Recorder) *APIKeyService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &APIKeyService{
		repo:    repo,
		metrics: recorder,
		now:     time.Now,
	}
}

// List returns the owner's active keys, newest first.
func (s *APIKeyService) List(ctx context.Context, ownerEmail string) ([]model.APIKeySummary, error) {
	owner := validate.Email(ownerEmail)
	if owner == "" {
		return nil, ErrMissingOwner
	}

	records, err := s.repo.ListAPIKeysByOwner(ctx, owner, listKeysStop)
	if err != nil {
		return nil, err
	}

	items := make([]model.APIKeySummary, 0, len(records))
	for _, rec := range records {
		if rec.IsRevoked() || rec.OwnerEmail != owner {
			continue
		}
		items = append(items, rec.Summary())
	}
	return items, nil
}

// Create issues a new key for an active owner. The plaintext is only
// available in the returned value.
func (s *APIKeyService) Create(ctx context.Context, ownerEmail string) (*model.CreatedAPIKey, error) {
	owner := validate.Email(ownerEmail)
	if owner == "" {
		return nil, ErrMissingOwner
	}

	now := s.now()
	if _, err := activeUser(ctx, s.repo, owner, now); err != nil {
		return nil, err
	}

	generated, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	record := &model.APIKeyRecord{
		ID:         ulid.Make().String(),
		OwnerEmail: owner,
		Prefix:     generated.Prefix,
		KeyHash:    generated.Hash,
		CreatedAt:  now.UnixMilli(),
	}
	if err := s.repo.CreateAPIKey(ctx, record); err != nil {
		return nil, err
	}

	s.metrics.IncAPIKeyCreated()

	return &model.CreatedAPIKey{
		ID:        record.ID,
		APIKey:    generated.Plaintext,
		Prefix:    record.Prefix,
		CreatedAt: record.CreatedAt,
	}, nil
}

// Revoke marks one of the owner's keys as revoked. Revoking twice keeps the
// first revocation time.
func (s *APIKeyService) Revoke(ctx context.Context, ownerEmail, id string) error {
	owner := validate.Email(ownerEmail)
	if owner == "" {
		return ErrMissingOwner
	}
	if id == "" {
		return ErrMissingID
	}

	record, err := s.repo.GetAPIKeyByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return ErrAPIKeyNotFound
		}
		return err
	}
	if record.OwnerEmail != owner {
		return ErrAPIKeyNotFound
	}

	if !record.IsRevoked() {
		revokedAt := s.now().UnixMilli()
		record.RevokedAt = &revokedAt
		s.metrics.IncAPIKeyRevoked()
	}
	return s.repo.SaveRevokedAPIKey(ctx, record)
}

// Authenticate resolves a key id and secret to the owning account.
// Missing, revoked and mismatched keys all return ErrUnauthorized.
func (s *APIKeyService) Authenticate(ctx context.Context, keyID, secret string) (*model.AuthContext, error) {
	if keyID == "" || secret == "" {
		s.metrics.IncAPIKeyAuthFailed()
		return nil, ErrUnauthorized
	}

	record, err := s.repo.GetAPIKeyByID(ctx, keyID)
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			s.metrics.IncAPIKeyAuthFailed()
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if record.IsRevoked() {
		s.metrics.IncAPIKeyAuthFailed()
		return nil, ErrUnauthorized
	}

	ok, err := auth.VerifyKey(secret, record.KeyHash)
	if err != nil || !ok {
		s.metrics.IncAPIKeyAuthFailed()
		return nil, ErrUnauthorized
	}

	return &model.AuthContext{
		KeyID:      record.ID,
		KeyPrefix:  record.Prefix,
		OwnerEmail: record.OwnerEmail,
	}, nil
}
