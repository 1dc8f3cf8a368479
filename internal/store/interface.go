// Package store defines the persistence interface for itinerary documents
// and its Badger implementation.
package store

import (
	"context"

	"github.com/roadbook/roadbook-server/internal/domain"
)

// TripStore persists documents. Updates replace the whole document; the
// last write wins.
type TripStore interface {
	// Lifecycle
	Close() error
	SetSearchIndexer(indexer SearchIndexer)

	// Trips
	CreateTrip(ctx context.Context, doc *domain.Document) error
	GetTrip(ctx context.Context, id string) (*domain.Document, error)
	UpdateTrip(ctx context.Context, doc *domain.Document) error
	DeleteTrip(ctx context.Context, id string) error
	ListTripsByOwner(ctx context.Context, ownerID string) ([]domain.TripSummary, error)
	ListAllTrips(ctx context.Context) ([]*domain.Document, error)
}

// SearchIndexer keeps the search index in sync with store changes.
// Index updates are performed asynchronously to not block store operations.
type SearchIndexer interface {
	IndexTrip(ctx context.Context, doc *domain.Document) error
	DeleteTrip(ctx context.Context, id string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexTrip is a no-op.
func (NoopSearchIndexer) IndexTrip(context.Context, *domain.Document) error { return nil }

// DeleteTrip is a no-op.
func (NoopSearchIndexer) DeleteTrip(context.Context, string) error { return nil }

// NewNoopSearchIndexer creates a new no-op search indexer for testing.
func NewNoopSearchIndexer() SearchIndexer {
	return NoopSearchIndexer{}
}

// IndexAsync pushes doc to the indexer in the background, logging failures.
func IndexAsync(indexer SearchIndexer, doc *domain.Document, warn func(msg string, args ...any)) {
	if indexer == nil {
		return
	}
	cp := doc.Clone()
	go func() {
		if err := indexer.IndexTrip(context.Background(), cp); err != nil && warn != nil {
			warn("failed to index trip for search", "trip_id", cp.Info.ID, "error", err)
		}
	}()
}

// DeleteAsync removes a trip from the indexer in the background.
func DeleteAsync(indexer SearchIndexer, id string, warn func(msg string, args ...any)) {
	if indexer == nil {
		return
	}
	go func() {
		if err := indexer.DeleteTrip(context.Background(), id); err != nil && warn != nil {
			warn("failed to remove trip from search", "trip_id", id, "error", err)
		}
	}()
}
