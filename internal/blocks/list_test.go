package blocks

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/roadbook/roadbook-server/internal/domain"
	domainerrors "github.com/roadbook/roadbook-server/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textBlock(id string) *domain.Block {
	return &domain.Block{ID: id, Type: domain.BlockText, Content: domain.TextContent{Text: id, Style: domain.TextNormal}}
}

func ids(l *List) []string {
	out := make([]string, 0, l.Len())
	for _, b := range l.Blocks() {
		out = append(out, b.ID)
	}
	return out
}

func requireStrictlyAscending(t *testing.T, l *List) {
	t.Helper()
	bs := l.Blocks()
	for i := 1; i < len(bs); i++ {
		require.Less(t, bs[i-1].Order, bs[i].Order, "keys at %d and %d", i-1, i)
	}
}

func TestList_AppendSpacesByIncrement(t *testing.T) {
	l := NewList(nil)

	assert.Equal(t, int64(100), l.Append(textBlock("a")))
	assert.Equal(t, int64(200), l.Append(textBlock("b")))
	assert.Equal(t, int64(300), l.Append(textBlock("c")))
}

func TestList_InsertAfterMidpoint(t *testing.T) {
	l := NewList(nil)
	l.Append(textBlock("a"))
	l.Append(textBlock("c"))

	order, err := l.InsertAfter("a", textBlock("b"))
	require.NoError(t, err)

	assert.Equal(t, int64(150), order)
	assert.Equal(t, []string{"a", "b", "c"}, ids(l))
}

func TestList_InsertAfterTail(t *testing.T) {
	l := NewList(nil)
	l.Append(textBlock("a"))

	order, err := l.InsertAfter("a", textBlock("b"))
	require.NoError(t, err)
	assert.Equal(t, int64(200), order)
}

func TestList_InsertAfterEmptyAnchorPrepends(t *testing.T) {
	l := NewList(nil)
	l.Append(textBlock("b"))

	order, err := l.InsertAfter("", textBlock("a"))
	require.NoError(t, err)

	assert.Equal(t, int64(50), order)
	assert.Equal(t, []string{"a", "b"}, ids(l))
}

func TestList_InsertBefore(t *testing.T) {
	l := NewList(nil)
	l.Append(textBlock("a"))
	l.Append(textBlock("c"))

	order, err := l.InsertBefore("c", textBlock("b"))
	require.NoError(t, err)
	assert.Equal(t, int64(150), order)

	_, err = l.InsertBefore("", textBlock("d"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(l))
}

func TestList_UnknownAnchor(t *testing.T) {
	l := NewList(nil)
	l.Append(textBlock("a"))

	_, err := l.InsertAfter("missing", textBlock("b"))
	assert.True(t, domainerrors.Is(err, domainerrors.ErrBlockNotFound))

	_, err = l.InsertBefore("missing", textBlock("b"))
	assert.True(t, domainerrors.Is(err, domainerrors.ErrBlockNotFound))

	_, err = l.Move("a", "missing")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrBlockNotFound))

	_, err = l.Remove("missing")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrBlockNotFound))

	assert.Equal(t, []string{"a"}, ids(l))
}

func TestList_DuplicateID(t *testing.T) {
	l := NewList(nil)
	l.Append(textBlock("a"))

	_, err := l.InsertAfter("a", textBlock("a"))
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))
}

func TestList_RekeyWhenGapExhausted(t *testing.T) {
	l := NewList(nil)
	l.Append(textBlock("a"))
	l.Append(textBlock("z"))

	// Repeatedly inserting right after "a" halves the gap each time.
	anchor := "a"
	for i := range 10 {
		id := fmt.Sprintf("n%d", i)
		_, err := l.InsertAfter(anchor, textBlock(id))
		require.NoError(t, err)
		requireStrictlyAscending(t, l)
	}

	assert.GreaterOrEqual(t, l.Rekeys(), 1)
	assert.Equal(t, "a", l.Blocks()[0].ID)
	assert.Equal(t, "z", l.Blocks()[l.Len()-1].ID)
}

func TestList_RekeyPreservesOrderAndLeavesRoom(t *testing.T) {
	l := NewList([]*domain.Block{
		{ID: "a", Order: 1},
		{ID: "b", Order: 2},
		{ID: "c", Order: 3},
	})

	before := ids(l)
	order, err := l.InsertAfter("a", textBlock("x"))
	require.NoError(t, err)

	assert.Equal(t, 1, l.Rekeys())
	assert.Equal(t, int64(150), order)
	assert.Equal(t, []string{"a", "x", "b", "c"}, ids(l))

	// The re-key left gaps: the next insert does not re-key again.
	_, err = l.InsertAfter("x", textBlock("y"))
	require.NoError(t, err)
	assert.Equal(t, 1, l.Rekeys())

	l.Rekey()
	got := ids(l)
	assert.Equal(t, []string{"a", "x", "y", "b", "c"}, got)
	assert.Equal(t, before[0], got[0])
}

func TestList_PrependBelowKeyOne(t *testing.T) {
	l := NewList([]*domain.Block{{ID: "a", Order: 1}})

	_, err := l.InsertAfter("", textBlock("first"))
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "a"}, ids(l))
	requireStrictlyAscending(t, l)
	assert.Greater(t, l.Blocks()[0].Order, int64(0))
}

func TestNewList_SortsAndResolvesDuplicates(t *testing.T) {
	l := NewList([]*domain.Block{
		{ID: "c", Order: 300},
		{ID: "a", Order: 100},
		{ID: "b", Order: 100},
	})

	assert.Equal(t, []string{"a", "b", "c"}, ids(l))
	requireStrictlyAscending(t, l)
	assert.Equal(t, 1, l.Rekeys())
}

func TestList_Move(t *testing.T) {
	l := NewList(nil)
	for _, id := range []string{"a", "b", "c", "d"} {
		l.Append(textBlock(id))
	}

	_, err := l.Move("d", "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d", "b", "c"}, ids(l))

	_, err = l.Move("a", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "b", "c", "a"}, ids(l))

	order, err := l.Move("b", "b")
	require.NoError(t, err)
	b, _ := l.Get("b")
	assert.Equal(t, b.Order, order)

	requireStrictlyAscending(t, l)
}

func TestList_MoveKeepsOtherKeys(t *testing.T) {
	l := NewList(nil)
	for _, id := range []string{"a", "b", "c"} {
		l.Append(textBlock(id))
	}

	_, err := l.Move("c", "a")
	require.NoError(t, err)

	a, _ := l.Get("a")
	b, _ := l.Get("b")
	assert.Equal(t, int64(100), a.Order)
	assert.Equal(t, int64(200), b.Order)
}

func TestList_RemoveNeverRekeys(t *testing.T) {
	l := NewList(nil)
	for _, id := range []string{"a", "b", "c"} {
		l.Append(textBlock(id))
	}

	removed, err := l.Remove("b")
	require.NoError(t, err)
	assert.Equal(t, "b", removed.ID)

	a, _ := l.Get("a")
	c, _ := l.Get("c")
	assert.Equal(t, int64(100), a.Order)
	assert.Equal(t, int64(300), c.Order)
	assert.Equal(t, 0, l.Rekeys())
}

func TestList_Replace(t *testing.T) {
	l := NewList(nil)
	l.Append(textBlock("a"))

	next := textBlock("a")
	next.Content = domain.TextContent{Text: "changed", Style: domain.TextTip}
	require.NoError(t, l.Replace(next))

	got, _ := l.Get("a")
	assert.Equal(t, int64(100), got.Order)
	assert.Equal(t, "changed", got.Content.(domain.TextContent).Text)

	assert.Error(t, l.Replace(textBlock("missing")))
}

// Random operation sequences must keep keys strictly ascending and place
// each inserted block between its stated neighbors.
func TestList_RandomOperationsKeepInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	l := NewList(nil)
	next := 0

	for step := 0; step < 2000; step++ {
		bs := l.Blocks()
		newID := fmt.Sprintf("b%d", next)

		switch op := rng.IntN(4); {
		case op == 0 || len(bs) == 0:
			anchor := ""
			if len(bs) > 0 && rng.IntN(5) > 0 {
				anchor = bs[rng.IntN(len(bs))].ID
			}
			_, err := l.InsertAfter(anchor, textBlock(newID))
			require.NoError(t, err)
			next++

			got := l.Blocks()
			pos := indexOf(got, newID)
			if anchor == "" {
				assert.Equal(t, 0, pos)
			} else {
				assert.Equal(t, indexOf(got, anchor)+1, pos)
			}
		case op == 1:
			before := bs[rng.IntN(len(bs))].ID
			_, err := l.InsertBefore(before, textBlock(newID))
			require.NoError(t, err)
			next++

			got := l.Blocks()
			assert.Equal(t, indexOf(got, before)-1, indexOf(got, newID))
		case op == 2:
			moving := bs[rng.IntN(len(bs))].ID
			before := bs[rng.IntN(len(bs))].ID
			_, err := l.Move(moving, before)
			require.NoError(t, err)
		default:
			_, err := l.Remove(bs[rng.IntN(len(bs))].ID)
			require.NoError(t, err)
		}

		requireStrictlyAscending(t, l)
	}
}

func indexOf(bs []*domain.Block, id string) int {
	for i, b := range bs {
		if b.ID == id {
			return i
		}
	}
	return -1
}
