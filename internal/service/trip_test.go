package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/roadbook/roadbook-server/internal/blocks"
	"github.com/roadbook/roadbook-server/internal/catalog"
	"github.com/roadbook/roadbook-server/internal/document"
	"github.com/roadbook/roadbook-server/internal/domain"
	domainerrors "github.com/roadbook/roadbook-server/internal/errors"
	"github.com/roadbook/roadbook-server/internal/generate"
	"github.com/roadbook/roadbook-server/internal/matcher"
	"github.com/roadbook/roadbook-server/internal/planner"
	"github.com/roadbook/roadbook-server/internal/search"
	"github.com/roadbook/roadbook-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	svc   *TripService
	store *store.Store
	index *search.TripIndex
}

func setupTripService(t *testing.T) *testEnv {
	t.Helper()
	logger := discard()

	st, err := store.NewInMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	index, err := search.NewTripIndex(search.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	st.SetSearchIndexer(index)

	cat, err := catalog.New(logger, catalog.Options{DefaultCity: "上海", DefaultIntent: domain.IntentFamily})
	require.NoError(t, err)

	rng := planner.NewRand(7)
	f := blocks.NewFactory()
	orch := generate.New(nil, cat, matcher.New(matcher.NewCategoryEstimator(rng)), planner.New(rng), f, logger, generate.Options{})

	return &testEnv{
		svc:   NewTripService(st, orch, f, index, logger),
		store: st,
		index: index,
	}
}

func TestTripService_GenerateAndSave(t *testing.T) {
	env := setupTripService(t)
	ctx := context.Background()

	doc, res, err := env.svc.GenerateAndSave(ctx, "alice", generate.Request{City: "上海", Days: 2, Intent: domain.IntentFamily})
	require.NoError(t, err)

	assert.Contains(t, doc.Info.ID, "trip-")
	assert.Equal(t, "alice", doc.Info.OwnerID)
	assert.Equal(t, generate.FromCatalog, res.Source)
	assert.False(t, res.IsRealtime)

	got, err := env.svc.Get(ctx, "alice", doc.Info.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Info.Title, got.Info.Title)
	assert.Len(t, got.Blocks, len(doc.Blocks))
	assert.Equal(t, 2, got.Info.DayCount)
}

func TestTripService_GenerateValidation(t *testing.T) {
	env := setupTripService(t)

	_, _, err := env.svc.GenerateAndSave(context.Background(), "alice", generate.Request{City: "", Days: 1, Intent: domain.IntentFamily})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, _, err = env.svc.GenerateAndSave(context.Background(), "", generate.Request{City: "上海", Days: 1, Intent: domain.IntentFamily})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestTripService_CreateDefaults(t *testing.T) {
	env := setupTripService(t)

	doc, err := env.svc.Create(context.Background(), "alice", CreateTripInput{})
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultTripTitle, doc.Info.Title)
	assert.Equal(t, domain.TripStatusPlanning, doc.Info.Status)
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, domain.BlockDayDivider, doc.Blocks[0].Type)
	assert.Equal(t, 1, doc.Info.DayCount)
}

func TestTripService_OwnerScope(t *testing.T) {
	env := setupTripService(t)
	ctx := context.Background()

	doc, err := env.svc.Create(ctx, "alice", CreateTripInput{Title: "周末"})
	require.NoError(t, err)

	_, err = env.svc.Get(ctx, "bob", doc.Info.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	err = env.svc.Delete(ctx, "bob", doc.Info.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = env.svc.InsertBlock(ctx, "bob", doc.Info.ID, document.Position{}, domain.BlockText, map[string]any{"text": "x"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	list, err := env.svc.List(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTripService_BlockEdits(t *testing.T) {
	env := setupTripService(t)
	ctx := context.Background()

	doc, err := env.svc.Create(ctx, "alice", CreateTripInput{Title: "周末"})
	require.NoError(t, err)
	divider := doc.Blocks[0].ID

	poi, err := env.svc.InsertBlock(ctx, "alice", doc.Info.ID, document.Position{After: divider}, domain.BlockPOI,
		map[string]any{"name": "外滩", "costMinor": 5000})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), poi.TotalCostMinor)

	text, err := env.svc.InsertBlock(ctx, "alice", doc.Info.ID, document.Position{Start: true}, domain.BlockText,
		map[string]any{"text": "出发前看天气"})
	require.NoError(t, err)

	// Text went first; move it to the end.
	moved, err := env.svc.MoveBlock(ctx, "alice", doc.Info.ID, text.Block.ID, "")
	require.NoError(t, err)
	last := moved.Document.Blocks[len(moved.Document.Blocks)-1]
	assert.Equal(t, text.Block.ID, last.ID)

	updated, err := env.svc.UpdateBlockContent(ctx, "alice", doc.Info.ID, poi.Block.ID, map[string]any{"cost_minor": 8000})
	require.NoError(t, err)
	assert.Equal(t, int64(8000), updated.TotalCostMinor)

	stored, err := env.svc.Get(ctx, "alice", doc.Info.ID)
	require.NoError(t, err)
	require.Len(t, stored.Blocks, 3)
	assert.Equal(t, int64(8000), stored.Info.TotalCostMinor)
	assert.Equal(t, "外滩", stored.Blocks[1].Content.(domain.POIContent).Name)

	removed, err := env.svc.RemoveBlock(ctx, "alice", doc.Info.ID, poi.Block.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed.TotalCostMinor)
	assert.Equal(t, 1, removed.DayCount)
}

func TestTripService_BlockNotFound(t *testing.T) {
	env := setupTripService(t)
	ctx := context.Background()

	doc, err := env.svc.Create(ctx, "alice", CreateTripInput{})
	require.NoError(t, err)

	_, err = env.svc.UpdateBlockContent(ctx, "alice", doc.Info.ID, "missing", map[string]any{"text": "x"})
	assert.ErrorIs(t, err, domainerrors.ErrBlockNotFound)

	_, err = env.svc.RemoveBlock(ctx, "alice", doc.Info.ID, "missing")
	assert.ErrorIs(t, err, domainerrors.ErrBlockNotFound)

	// A failed edit leaves the stored document untouched.
	stored, err := env.svc.Get(ctx, "alice", doc.Info.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Blocks, 1)
}

func TestTripService_Update(t *testing.T) {
	env := setupTripService(t)
	ctx := context.Background()

	doc, err := env.svc.Create(ctx, "alice", CreateTripInput{Title: "旧标题"})
	require.NoError(t, err)

	title, status := "新标题", domain.TripStatusOngoing
	got, err := env.svc.Update(ctx, "alice", doc.Info.ID, domain.TripPatch{Title: &title, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "新标题", got.Info.Title)
	assert.Equal(t, domain.TripStatusOngoing, got.Info.Status)

	bad := "archived"
	_, err = env.svc.Update(ctx, "alice", doc.Info.ID, domain.TripPatch{Status: &bad})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestTripService_Delete(t *testing.T) {
	env := setupTripService(t)
	ctx := context.Background()

	doc, err := env.svc.Create(ctx, "alice", CreateTripInput{})
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, "alice", doc.Info.ID))

	_, err = env.svc.Get(ctx, "alice", doc.Info.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestTripService_PlanAndStats(t *testing.T) {
	env := setupTripService(t)
	ctx := context.Background()

	doc, _, err := env.svc.GenerateAndSave(ctx, "alice", generate.Request{City: "上海", Days: 1, Intent: domain.IntentFamily})
	require.NoError(t, err)
	_, _, err = env.svc.GenerateAndSave(ctx, "alice", generate.Request{City: "北京", Days: 1, Intent: domain.IntentFood})
	require.NoError(t, err)
	_, err = env.svc.Create(ctx, "alice", CreateTripInput{City: "上海"})
	require.NoError(t, err)

	p, err := env.svc.Plan(ctx, "alice", doc.Info.ID)
	require.NoError(t, err)
	require.Len(t, p.Days, 1)
	assert.NotEmpty(t, p.Days[0].Activities)
	assert.Equal(t, doc.Info.Tips, p.Tips)

	stats, err := env.svc.Stats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TripCount)
	assert.Equal(t, 2, stats.CityCount)
	assert.GreaterOrEqual(t, stats.POICount, 2)
}

func TestTripService_Search(t *testing.T) {
	env := setupTripService(t)
	ctx := context.Background()

	doc, _, err := env.svc.GenerateAndSave(ctx, "alice", generate.Request{City: "北京", Days: 1, Intent: domain.IntentFood})
	require.NoError(t, err)

	// Indexing is asynchronous.
	require.Eventually(t, func() bool {
		res, err := env.svc.Search(ctx, "alice", search.SearchParams{Query: "北京"})
		return err == nil && len(res.Hits) == 1 && res.Hits[0].ID == doc.Info.ID
	}, 2*time.Second, 20*time.Millisecond)

	res, err := env.svc.Search(ctx, "bob", search.SearchParams{Query: "北京"})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestTripService_ReindexAll(t *testing.T) {
	env := setupTripService(t)
	ctx := context.Background()

	for range 2 {
		_, err := env.svc.Create(ctx, "alice", CreateTripInput{City: "上海"})
		require.NoError(t, err)
	}

	require.NoError(t, env.svc.ReindexAll(ctx))

	count, err := env.index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

type failingStore struct {
	store.TripStore
}

func (failingStore) GetTrip(context.Context, string) (*domain.Document, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) ListTripsByOwner(context.Context, string) ([]domain.TripSummary, error) {
	return nil, errors.New("disk on fire")
}

func TestTripService_PersistenceErrors(t *testing.T) {
	svc := NewTripService(failingStore{}, nil, blocks.NewFactory(), nil, discard())
	ctx := context.Background()

	_, err := svc.Get(ctx, "alice", "trip-1")
	assert.ErrorIs(t, err, domainerrors.ErrPersistence)

	_, err = svc.List(ctx, "alice")
	assert.ErrorIs(t, err, domainerrors.ErrPersistence)

	_, err = svc.Search(ctx, "alice", search.SearchParams{Query: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrInternal)
}
