package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/looply/looply/internal/kv"
	"github.com/looply/looply/internal/model"
)

// Common errors for lead repository operations.
var (
	ErrLeadNotFound = errors.New("lead not found")
)

// CreateLead stores a lead and prepends it to the owner's index.
func (r *Repository) CreateLead(ctx context.Context, lead *model.Lead) error {
	if err := r.putIndexed(ctx, leadKey(lead.ID), leadsByUserKey(lead.OwnerEmail), lead.ID, lead); err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// GetLead loads a lead by id regardless of owner.
func (r *Repository) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	var lead model.Lead
	found, err := kv.GetJSON(ctx, r.store, leadKey(id), &lead)
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	if !found {
		return nil, ErrLeadNotFound
	}
	return &lead, nil
}

// ListLeads returns the owner's leads, newest first.
func (r *Repository) ListLeads(ctx context.Context, ownerEmail string, cursor, limit int64) (Page[model.Lead], error) {
	page, err := listPage[model.Lead](ctx, r.store, leadsByUserKey(ownerEmail), leadKey, cursor, limit)
	if err != nil {
		return Page[model.Lead]{}, fmt.Errorf("failed to list leads: %w", err)
	}
	return page, nil
}
