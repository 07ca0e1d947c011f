package repository

import (
	"context"
	"fmt"

	"github.com/looply/looply/internal/model"
)

// CreateEvent stores a timeline event and prepends it to the lead's index.
func (r *Repository) CreateEvent(ctx context.Context, event *model.TimelineEvent) error {
	if err := r.putIndexed(ctx, eventKey(event.ID), eventsByLeadKey(event.LeadID), event.ID, event); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// ListEvents returns a lead's timeline, newest first.
func (r *Repository) ListEvents(ctx context.Context, leadID string, cursor, limit int64) (Page[model.TimelineEvent], error) {
	page, err := listPage[model.TimelineEvent](ctx, r.store, eventsByLeadKey(leadID), eventKey, cursor, limit)
	if err != nil {
		return Page[model.TimelineEvent]{}, fmt.Errorf("failed to list events: %w", err)
	}
	return page, nil
}
