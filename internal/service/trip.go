package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roadbook/roadbook-server/internal/blocks"
	"github.com/roadbook/roadbook-server/internal/document"
	"github.com/roadbook/roadbook-server/internal/domain"
	domainerrors "github.com/roadbook/roadbook-server/internal/errors"
	"github.com/roadbook/roadbook-server/internal/generate"
	"github.com/roadbook/roadbook-server/internal/id"
	"github.com/roadbook/roadbook-server/internal/normalize"
	"github.com/roadbook/roadbook-server/internal/plan"
	"github.com/roadbook/roadbook-server/internal/search"
	"github.com/roadbook/roadbook-server/internal/store"
)

// Generator produces unsaved documents.
type Generator interface {
	Generate(ctx context.Context, req generate.Request) (*generate.Result, error)
}

// TripService orchestrates trip persistence, generation and block edits with
// owner scoping. Every edit loads the document, applies the change through the
// document editor and writes the whole document back (last write wins).
type TripService struct {
	store     store.TripStore
	generator Generator
	editor    *document.Editor
	index     *search.TripIndex
	logger    *slog.Logger
	now       func() time.Time
}

// NewTripService creates a new trip service. index may be nil, in which case
// Search reports an internal error.
func NewTripService(st store.TripStore, gen Generator, f *blocks.Factory, index *search.TripIndex, logger *slog.Logger) *TripService {
	return &TripService{
		store:     st,
		generator: gen,
		editor:    document.NewEditor(f),
		index:     index,
		logger:    logger,
		now:       f.Now,
	}
}

// CreateTripInput describes a new empty document.
type CreateTripInput struct {
	Title  string
	City   string
	Intent domain.Intent
}

// Generate runs the generation pipeline without persisting the result.
func (s *TripService) Generate(ctx context.Context, req generate.Request) (*generate.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.generator.Generate(ctx, req)
}

// GenerateAndSave generates a document and stores it for ownerID.
func (s *TripService) GenerateAndSave(ctx context.Context, ownerID string, req generate.Request) (*domain.Document, *generate.Result, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, nil, err
	}
	res, err := s.Generate(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	tripID, err := id.Generate(id.PrefixTrip)
	if err != nil {
		return nil, nil, fmt.Errorf("generate trip ID: %w", err)
	}

	info := res.Info
	info.ID = tripID
	info.OwnerID = ownerID
	doc := &domain.Document{Info: info, Blocks: res.Blocks}

	if err := s.store.CreateTrip(ctx, doc); err != nil {
		return nil, nil, storeError(err, tripID)
	}

	s.logger.Info("generated trip saved",
		"trip_id", tripID,
		"owner_id", ownerID,
		"source", res.Source,
		"blocks", len(doc.Blocks),
	)
	return doc, res, nil
}

// Create stores an empty document holding one day divider.
func (s *TripService) Create(ctx context.Context, ownerID string, in CreateTripInput) (*domain.Document, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if in.Intent != "" && !in.Intent.Valid() {
		return nil, domainerrors.Validationf("unknown intent %q", in.Intent)
	}

	tripID, err := id.Generate(id.PrefixTrip)
	if err != nil {
		return nil, fmt.Errorf("generate trip ID: %w", err)
	}

	now := s.now()
	doc := s.editor.New(domain.TripInfo{
		ID:        tripID,
		OwnerID:   ownerID,
		Title:     strings.TrimSpace(in.Title),
		City:      normalize.City(in.City),
		Intent:    in.Intent,
		CreatedAt: now,
		UpdatedAt: now,
	})

	if err := s.store.CreateTrip(ctx, doc); err != nil {
		return nil, storeError(err, tripID)
	}

	s.logger.Info("trip created", "trip_id", tripID, "owner_id", ownerID)
	return doc, nil
}

// Get returns one of the owner's documents. Documents owned by someone else
// are reported as not found.
func (s *TripService) Get(ctx context.Context, ownerID, tripID string) (*domain.Document, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	doc, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, storeError(err, tripID)
	}
	if doc.Info.OwnerID != ownerID {
		return nil, domainerrors.NotFoundf("trip %s not found", tripID)
	}
	return doc, nil
}

// Update merges a partial info patch into the document header.
func (s *TripService) Update(ctx context.Context, ownerID, tripID string, patch domain.TripPatch) (*domain.Document, error) {
	if patch.Intent != nil && !patch.Intent.Valid() {
		return nil, domainerrors.Validationf("unknown intent %q", *patch.Intent)
	}
	if patch.Status != nil && !validStatus(*patch.Status) {
		return nil, domainerrors.Validationf("unknown status %q", *patch.Status)
	}
	if patch.City != nil {
		city := normalize.City(*patch.City)
		patch.City = &city
	}

	doc, err := s.Get(ctx, ownerID, tripID)
	if err != nil {
		return nil, err
	}

	patch.Apply(&doc.Info)
	if strings.TrimSpace(doc.Info.Title) == "" {
		doc.Info.Title = domain.DefaultTripTitle
	}
	doc.Info.UpdatedAt = s.now()

	if err := s.store.UpdateTrip(ctx, doc); err != nil {
		return nil, storeError(err, tripID)
	}
	return doc, nil
}

// Delete removes one of the owner's documents.
func (s *TripService) Delete(ctx context.Context, ownerID, tripID string) error {
	if _, err := s.Get(ctx, ownerID, tripID); err != nil {
		return err
	}
	if err := s.store.DeleteTrip(ctx, tripID); err != nil {
		return storeError(err, tripID)
	}
	s.logger.Info("trip deleted", "trip_id", tripID, "owner_id", ownerID)
	return nil
}

// List returns the owner's document summaries, most recently updated first.
func (s *TripService) List(ctx context.Context, ownerID string) ([]domain.TripSummary, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	list, err := s.store.ListTripsByOwner(ctx, ownerID)
	if err != nil {
		return nil, domainerrors.Persistence(err)
	}
	return list, nil
}

// InsertBlock adds a block built from raw content at pos.
func (s *TripService) InsertBlock(ctx context.Context, ownerID, tripID string, pos document.Position, t domain.BlockType, raw map[string]any) (*document.Result, error) {
	return s.edit(ctx, ownerID, tripID, func(doc *domain.Document) (*document.Result, error) {
		return s.editor.InsertBlock(doc, pos, t, raw)
	})
}

// MoveBlock moves blockID before beforeID, or to the end when beforeID is empty.
func (s *TripService) MoveBlock(ctx context.Context, ownerID, tripID, blockID, beforeID string) (*document.Result, error) {
	return s.edit(ctx, ownerID, tripID, func(doc *domain.Document) (*document.Result, error) {
		return s.editor.MoveBlock(doc, blockID, beforeID)
	})
}

// RemoveBlock deletes blockID.
func (s *TripService) RemoveBlock(ctx context.Context, ownerID, tripID, blockID string) (*document.Result, error) {
	return s.edit(ctx, ownerID, tripID, func(doc *domain.Document) (*document.Result, error) {
		return s.editor.RemoveBlock(doc, blockID)
	})
}

// UpdateBlockContent merges patch into blockID's content.
func (s *TripService) UpdateBlockContent(ctx context.Context, ownerID, tripID, blockID string, patch map[string]any) (*document.Result, error) {
	return s.edit(ctx, ownerID, tripID, func(doc *domain.Document) (*document.Result, error) {
		return s.editor.UpdateBlockContent(doc, blockID, patch)
	})
}

func (s *TripService) edit(ctx context.Context, ownerID, tripID string, apply func(*domain.Document) (*document.Result, error)) (*document.Result, error) {
	doc, err := s.Get(ctx, ownerID, tripID)
	if err != nil {
		return nil, err
	}

	res, err := apply(doc)
	if err != nil {
		return nil, err
	}
	res.Document.Info.UpdatedAt = s.now()

	if err := s.store.UpdateTrip(ctx, res.Document); err != nil {
		return nil, storeError(err, tripID)
	}
	return res, nil
}

// Plan returns the nested day/activity view of a document.
func (s *TripService) Plan(ctx context.Context, ownerID, tripID string) (*domain.NestedPlan, error) {
	doc, err := s.Get(ctx, ownerID, tripID)
	if err != nil {
		return nil, err
	}
	return plan.FromBlocks(doc.Blocks, doc.Info), nil
}

// Stats aggregates the owner's documents.
func (s *TripService) Stats(ctx context.Context, ownerID string) (*domain.TripStats, error) {
	list, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	stats := &domain.TripStats{TripCount: len(list)}
	cities := make(map[string]bool)
	for _, t := range list {
		stats.POICount += t.POICount
		if city := normalize.City(t.City); city != "" {
			cities[city] = true
		}
	}
	stats.CityCount = len(cities)
	return stats, nil
}

// Search runs a full-text query over the owner's documents.
func (s *TripService) Search(ctx context.Context, ownerID string, params search.SearchParams) (*search.SearchResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if s.index == nil {
		return nil, domainerrors.Internal("search is not available")
	}
	params.OwnerID = ownerID
	params.Query = strings.TrimSpace(params.Query)
	return s.index.Search(ctx, params)
}

// ReindexAll rebuilds the search index from the store.
func (s *TripService) ReindexAll(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	docs, err := s.store.ListAllTrips(ctx)
	if err != nil {
		return fmt.Errorf("list trips: %w", err)
	}
	if err := s.index.Rebuild(docs); err != nil {
		return fmt.Errorf("rebuild search index: %w", err)
	}
	return nil
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return domainerrors.Validation("owner id is required")
	}
	return nil
}

func validStatus(status string) bool {
	switch status {
	case domain.TripStatusPlanning, domain.TripStatusOngoing, domain.TripStatusCompleted:
		return true
	}
	return false
}

// storeError maps store sentinels to domain errors; anything else is an
// opaque persistence failure.
func storeError(err error, tripID string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFoundf("trip %s not found", tripID)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.Conflict(fmt.Sprintf("trip %s already exists", tripID))
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Validation(err.Error())
	default:
		return domainerrors.Persistence(err)
	}
}
