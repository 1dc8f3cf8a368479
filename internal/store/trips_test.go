package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/roadbook/roadbook-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testDoc(id, owner string, updated time.Time) *domain.Document {
	return &domain.Document{
		Info: domain.TripInfo{
			ID:             id,
			OwnerID:        owner,
			Title:          "上海 1天 亲子遛娃",
			City:           "上海",
			DayCount:       1,
			Intent:         domain.IntentFamily,
			Status:         domain.TripStatusPlanning,
			TotalCostMinor: 6000,
			CreatedAt:      updated,
			UpdatedAt:      updated,
		},
		Blocks: []*domain.Block{
			{ID: "b1", Type: domain.BlockDayDivider, Order: 100, Content: domain.DayDividerContent{DayIndex: 1, Label: "Day 1"}},
			{ID: "b2", Type: domain.BlockPOI, Order: 200, Content: domain.POIContent{Name: "上海科技馆", DurationMinutes: 240, CostMinor: 6000, Currency: "CNY", Tags: []string{}}},
		},
	}
}

func TestTrip_CreateGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateTrip(ctx, testDoc("trip-1", "alice", now)))

	got, err := s.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, "上海 1天 亲子遛娃", got.Info.Title)
	require.Len(t, got.Blocks, 2)
	poi, ok := got.Blocks[1].Content.(domain.POIContent)
	require.True(t, ok)
	assert.Equal(t, int64(6000), poi.CostMinor)
	assert.True(t, now.Equal(got.Info.UpdatedAt))
}

func TestTrip_CreateDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTrip(ctx, testDoc("trip-1", "alice", time.Now())))
	err := s.CreateTrip(ctx, testDoc("trip-1", "alice", time.Now()))

	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestTrip_CreateRequiresID(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateTrip(context.Background(), testDoc("", "alice", time.Now()))

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTrip_GetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetTrip(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrTripNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTrip_UpdateReplacesDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTrip(ctx, testDoc("trip-1", "alice", time.Now())))

	doc, err := s.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	doc.Info.Title = "周末"
	doc.Blocks = doc.Blocks[:1]
	require.NoError(t, s.UpdateTrip(ctx, doc))

	got, err := s.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, "周末", got.Info.Title)
	assert.Len(t, got.Blocks, 1)
}

func TestTrip_UpdateMissing(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateTrip(context.Background(), testDoc("nope", "alice", time.Now()))

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTrip_UpdateMovesOwnerIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	doc := testDoc("trip-1", "alice", time.Now())
	require.NoError(t, s.CreateTrip(ctx, doc))

	doc.Info.OwnerID = "bob"
	require.NoError(t, s.UpdateTrip(ctx, doc))

	alice, err := s.ListTripsByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, alice)
	bob, err := s.ListTripsByOwner(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, bob, 1)
}

func TestTrip_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTrip(ctx, testDoc("trip-1", "alice", time.Now())))

	require.NoError(t, s.DeleteTrip(ctx, "trip-1"))

	_, err := s.GetTrip(ctx, "trip-1")
	assert.ErrorIs(t, err, ErrNotFound)
	list, err := s.ListTripsByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.ErrorIs(t, s.DeleteTrip(ctx, "trip-1"), ErrNotFound)
}

func TestTrip_ListByOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateTrip(ctx, testDoc("old", "alice", base)))
	require.NoError(t, s.CreateTrip(ctx, testDoc("new", "alice", base.Add(time.Hour))))
	require.NoError(t, s.CreateTrip(ctx, testDoc("other", "bob", base)))
	// "alice2" must not match the "alice" prefix scan.
	require.NoError(t, s.CreateTrip(ctx, testDoc("x", "alice2", base)))

	list, err := s.ListTripsByOwner(ctx, "alice")
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
	assert.Equal(t, 2, list[0].BlockCount)
	assert.Equal(t, 1, list[0].POICount)

	all, err := s.ListAllTrips(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestTrip_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetTrip(ctx, "x")
	assert.True(t, errors.Is(err, context.Canceled))
}

type recordingIndexer struct {
	mu      sync.Mutex
	indexed []string
	deleted []string
}

func (r *recordingIndexer) IndexTrip(_ context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, doc.Info.ID)
	return nil
}

func (r *recordingIndexer) DeleteTrip(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *recordingIndexer) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.indexed), len(r.deleted)
}

func TestTrip_KeepsSearchIndexInSync(t *testing.T) {
	s := newTestStore(t)
	idx := &recordingIndexer{}
	s.SetSearchIndexer(idx)
	ctx := context.Background()

	doc := testDoc("trip-1", "alice", time.Now())
	require.NoError(t, s.CreateTrip(ctx, doc))
	require.NoError(t, s.UpdateTrip(ctx, doc))
	require.NoError(t, s.DeleteTrip(ctx, "trip-1"))

	assert.Eventually(t, func() bool {
		i, d := idx.counts()
		return i == 2 && d == 1
	}, time.Second, 10*time.Millisecond)
}
