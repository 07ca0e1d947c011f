// Package repository maps domain entities onto the key-value store.
//
// Records are JSON documents under "{kind}:{id}" and each owner or parent
// keeps a newest-first list of child ids, so listing is an LRANGE over the
// index followed by one GET per id.
package repository

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/looply/looply/internal/kv"
)

// fetchConcurrency bounds parallel record loads for one page.
const fetchConcurrency = 8

// Repository provides KV-backed access methods.
type Repository struct {
	store kv.Store
}

// New creates a new Repository over store.
func New(store kv.Store) *Repository {
	return &Repository{store: store}
}

// Ping checks store connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// Store returns the underlying store.
// Use sparingly - prefer adding methods to Repository.
func (r *Repository) Store() kv.Store {
	return r.store
}

// Key layout. Kept compatible with data written by earlier deployments.
func userKey(email string) string { return "user:" + email }
func leadKey(id string) string { return "lead:" + id }
func leadsByUserKey(email string) string { return "leadsByUser:" + email }
func eventKey(id string) string { return "event:" + id }
func eventsByLeadKey(leadID string) string { return "eventsByLead:" + leadID }
func apiKeyKey(id string) string { return "apiKey:" + id }
func apiKeysByUserKey(email string) string { return "apiKeysByUser:" + email }

// Page is one slice of an index list.
// NextCursor is nil when the page was short, meaning the list is exhausted.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor *int64 `json:"nextCursor"`
}

// putIndexed stores a record and pushes its id onto the head of an index.
func (r *Repository) putIndexed(ctx context.Context, recordKey, indexKey, id string, record any) error {
	if err := kv.SetJSON(ctx, r.store, recordKey, record); err != nil {
		return err
	}
	if _, err := r.store.LPush(ctx, indexKey, id); err != nil {
		return fmt.Errorf("index %s: %w", indexKey, err)
	}
	return nil
}

// loadRecords resolves ids to records. Missing or undecodable records are skipped.
func loadRecords[T any](ctx context.Context, store kv.Store, ids []string, recordKey func(string) string) ([]T, error) {
	slots := make([]*T, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			var record T
			found, err := kv.GetJSON(gctx, store, recordKey(id), &record)
			if err != nil {
				return err
			}
			if found {
				slots[i] = &record
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]T, 0, len(ids))
	for _, slot := range slots {
		if slot != nil {
			items = append(items, *slot)
		}
	}
	return items, nil
}

// listPage reads LRANGE cursor..cursor+limit-1 of indexKey and loads the records.
func listPage[T any](ctx context.Context, store kv.Store, indexKey string, recordKey func(string) string, cursor, limit int64) (Page[T], error) {
	ids, err := store.LRange(ctx, indexKey, cursor, cursor+limit-1)
	if err != nil {
		return Page[T]{}, err
	}

	items, err := loadRecords[T](ctx, store, ids, recordKey)
	if err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{Items: items}
	if int64(len(ids)) >= limit {
		next := cursor + int64(len(ids))
		page.NextCursor = &next
	}
	return page, nil
}
