package store

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/roadbook/roadbook-server/internal/domain"
)

// Key prefixes for trip storage.
const (
	tripPrefix         = "trip:"
	tripsByOwnerPrefix = "idx:trips:owner:"
)

func tripKey(id string) []byte {
	return []byte(tripPrefix + id)
}

func ownerIndexKey(ownerID, tripID string) []byte {
	return fmt.Appendf(nil, "%s%s:%s", tripsByOwnerPrefix, ownerID, tripID)
}

// CreateTrip stores a new document and its owner index.
func (s *Store) CreateTrip(ctx context.Context, doc *domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc.Info.ID == "" {
		return ErrInvalidInput.WithMessage("trip id is required")
	}

	key := tripKey(doc.Info.ID)
	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check trip exists: %w", err)
	}
	if exists {
		return ErrDuplicateTrip
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal trip: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		// idx:trips:owner:{ownerID}:{tripID}
		if err := txn.Set(ownerIndexKey(doc.Info.OwnerID, doc.Info.ID), []byte{}); err != nil {
			return fmt.Errorf("set owner index: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create trip: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("trip created",
			"id", doc.Info.ID,
			"owner_id", doc.Info.OwnerID,
			"blocks", len(doc.Blocks),
		)
	}

	IndexAsync(s.searchIndexer, doc, s.warn)
	return nil
}

// GetTrip retrieves a document by ID.
func (s *Store) GetTrip(ctx context.Context, id string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc domain.Document
	if err := s.get(tripKey(id), &doc); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("get trip: %w", err)
	}
	if doc.Blocks == nil {
		doc.Blocks = []*domain.Block{}
	}
	return &doc, nil
}

// UpdateTrip replaces a stored document. The owner index follows an owner change.
func (s *Store) UpdateTrip(ctx context.Context, doc *domain.Document) error {
	old, err := s.GetTrip(ctx, doc.Info.ID)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal trip: %w", err)
		}
		if err := txn.Set(tripKey(doc.Info.ID), data); err != nil {
			return fmt.Errorf("set trip: %w", err)
		}

		if old.Info.OwnerID != doc.Info.OwnerID {
			if err := txn.Delete(ownerIndexKey(old.Info.OwnerID, doc.Info.ID)); err != nil {
				return fmt.Errorf("delete owner index: %w", err)
			}
			if err := txn.Set(ownerIndexKey(doc.Info.OwnerID, doc.Info.ID), []byte{}); err != nil {
				return fmt.Errorf("set owner index: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update trip: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("trip updated", "id", doc.Info.ID, "blocks", len(doc.Blocks))
	}

	IndexAsync(s.searchIndexer, doc, s.warn)
	return nil
}

// DeleteTrip deletes a document and its owner index.
func (s *Store) DeleteTrip(ctx context.Context, id string) error {
	doc, err := s.GetTrip(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(tripKey(id)); err != nil {
			return fmt.Errorf("delete trip: %w", err)
		}
		if err := txn.Delete(ownerIndexKey(doc.Info.OwnerID, id)); err != nil {
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete owner index: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("trip deleted", "id", id)
	}

	DeleteAsync(s.searchIndexer, id, s.warn)
	return nil
}

// ListTripsByOwner returns summaries of an owner's documents, most recently
// updated first.
func (s *Store) ListTripsByOwner(ctx context.Context, ownerID string) ([]domain.TripSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var tripIDs []string

	// Scan owner index: idx:trips:owner:{ownerID}:{tripID}
	prefix := fmt.Appendf(nil, "%s%s:", tripsByOwnerPrefix, ownerID)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // We only need keys.
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			if i := strings.LastIndexByte(key, ':'); i >= 0 && i < len(key)-1 {
				tripIDs = append(tripIDs, key[i+1:])
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan owner index: %w", err)
	}

	out := make([]domain.TripSummary, 0, len(tripIDs))
	for _, id := range tripIDs {
		doc, err := s.GetTrip(ctx, id)
		if err != nil {
			s.warn("failed to get trip from index", "trip_id", id, "error", err)
			continue
		}
		out = append(out, domain.Summarize(doc.Info, doc.Blocks))
	}

	SortSummaries(out)
	return out, nil
}

// ListAllTrips returns every stored document. Used to rebuild the search index.
func (s *Store) ListAllTrips(ctx context.Context) ([]*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var docs []*domain.Document
	prefix := []byte(tripPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var doc domain.Document
				if err := json.Unmarshal(val, &doc); err != nil {
					return err
				}
				docs = append(docs, &doc)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}

	return docs, nil
}

// SortSummaries orders summaries by UpdatedAt descending, then ID.
func SortSummaries(out []domain.TripSummary) {
	slices.SortFunc(out, func(a, b domain.TripSummary) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
