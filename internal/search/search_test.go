package search

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/roadbook/roadbook-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestIndex creates an in-memory trip index for testing.
func setupTestIndex(t *testing.T) *TripIndex {
	t.Helper()

	index, err := NewTripIndex(Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return index
}

func poiBlock(id, name string, tags ...string) *domain.Block {
	return &domain.Block{ID: id, Type: domain.BlockPOI, Content: domain.POIContent{Name: name, Tags: tags}}
}

func testTrip(id, owner, title, city string, intent domain.Intent, pois ...*domain.Block) *domain.Document {
	return &domain.Document{
		Info: domain.TripInfo{
			ID:        id,
			OwnerID:   owner,
			Title:     title,
			City:      city,
			Intent:    intent,
			DayCount:  1,
			UpdatedAt: time.Now(),
		},
		Blocks: pois,
	}
}

func seed(t *testing.T, index *TripIndex) {
	t.Helper()
	ctx := context.Background()
	trips := []*domain.Document{
		testTrip("t1", "alice", "上海 1天 亲子遛娃", "上海", domain.IntentFamily,
			poiBlock("p1", "上海科技馆", "科技馆"), poiBlock("p2", "上海自然博物馆", "博物馆")),
		testTrip("t2", "alice", "北京 2天 美食探店", "北京", domain.IntentFood,
			poiBlock("p3", "四季民福烤鸭店", "餐厅")),
		testTrip("t3", "bob", "上海 2天 情侣约会", "上海", domain.IntentCouple,
			poiBlock("p4", "外滩观景台", "观景")),
	}
	for _, doc := range trips {
		require.NoError(t, index.IndexTrip(ctx, doc))
	}
}

func TestNewTripIndex_InMemory(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestNewTripIndex_OnDiskReopen(t *testing.T) {
	dir := t.TempDir()

	index, err := NewTripIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, index.IndexTrip(context.Background(), testTrip("t1", "alice", "上海之旅", "上海", domain.IntentFamily)))
	require.NoError(t, index.Close())

	reopened, err := NewTripIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestNewTripIndex_VersionMismatchRebuilds(t *testing.T) {
	dir := t.TempDir()

	index, err := NewTripIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, index.IndexTrip(context.Background(), testTrip("t1", "alice", "上海之旅", "上海", domain.IntentFamily)))
	require.NoError(t, index.Close())

	require.NoError(t, os.WriteFile(dir+"/trips.version", []byte("0"), 0o644))

	rebuilt, err := NewTripIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer rebuilt.Close()

	count, err := rebuilt.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSearch_ByPlaceName(t *testing.T) {
	index := setupTestIndex(t)
	seed(t, index)

	result, err := index.Search(context.Background(), SearchParams{OwnerID: "alice", Query: "科技馆"})
	require.NoError(t, err)

	require.Len(t, result.Hits, 1)
	assert.Equal(t, "t1", result.Hits[0].ID)
	assert.Equal(t, "上海", result.Hits[0].City)
	assert.Equal(t, string(domain.IntentFamily), result.Hits[0].Intent)
}

func TestSearch_ScopedToOwner(t *testing.T) {
	index := setupTestIndex(t)
	seed(t, index)

	result, err := index.Search(context.Background(), SearchParams{OwnerID: "alice", Query: "上海"})
	require.NoError(t, err)

	for _, hit := range result.Hits {
		assert.NotEqual(t, "t3", hit.ID, "bob's trip leaked into alice's results")
	}
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "t1", result.Hits[0].ID)
}

func TestSearch_EmptyQueryListsOwnerTrips(t *testing.T) {
	index := setupTestIndex(t)
	seed(t, index)

	result, err := index.Search(context.Background(), SearchParams{OwnerID: "alice"})
	require.NoError(t, err)

	assert.Equal(t, uint64(2), result.Total)
}

func TestSearch_IntentAndTagFilters(t *testing.T) {
	index := setupTestIndex(t)
	seed(t, index)
	ctx := context.Background()

	byIntent, err := index.Search(ctx, SearchParams{OwnerID: "alice", Intent: string(domain.IntentFood)})
	require.NoError(t, err)
	require.Len(t, byIntent.Hits, 1)
	assert.Equal(t, "t2", byIntent.Hits[0].ID)

	byTag, err := index.Search(ctx, SearchParams{OwnerID: "alice", Tag: "博物馆"})
	require.NoError(t, err)
	require.Len(t, byTag.Hits, 1)
	assert.Equal(t, "t1", byTag.Hits[0].ID)
}

func TestSearch_RequiresOwner(t *testing.T) {
	index := setupTestIndex(t)

	_, err := index.Search(context.Background(), SearchParams{Query: "上海"})
	assert.Error(t, err)
}

func TestDeleteTrip(t *testing.T) {
	index := setupTestIndex(t)
	seed(t, index)
	ctx := context.Background()

	require.NoError(t, index.DeleteTrip(ctx, "t1"))

	result, err := index.Search(ctx, SearchParams{OwnerID: "alice", Query: "科技馆"})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestRebuild(t *testing.T) {
	index := setupTestIndex(t)
	seed(t, index)

	docs := []*domain.Document{
		testTrip("only", "alice", "杭州 1天 情侣约会", "杭州", domain.IntentCouple),
	}
	require.NoError(t, index.Rebuild(docs))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestTripToDocument(t *testing.T) {
	doc := testTrip("t1", "alice", "上海", "上海", domain.IntentFamily,
		poiBlock("p1", "上海科技馆", "科技馆"),
		poiBlock("p2", "上海自然博物馆", "科技馆", "博物馆"),
		&domain.Block{ID: "x", Type: domain.BlockText, Content: domain.TextContent{Text: "带水"}},
	)

	td := TripToDocument(doc)

	assert.Equal(t, []string{"上海科技馆", "上海自然博物馆"}, td.POINames)
	assert.Equal(t, []string{"科技馆", "博物馆"}, td.POITags)
	assert.Equal(t, "带水", td.Notes)
}
