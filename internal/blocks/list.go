package blocks

import (
	"math"
	"slices"

	"github.com/roadbook/roadbook-server/internal/domain"
	domainerrors "github.com/roadbook/roadbook-server/internal/errors"
)

// OrderIncrement is the spacing between keys after a re-key.
const OrderIncrement int64 = 100

// List is an in-memory block sequence kept in ascending Order.
// Keys are unique; new keys are integer midpoints between neighbors and the
// whole list is re-keyed when a gap is exhausted.
type List struct {
	blocks []*domain.Block
	rekeys int
}

// NewList builds a list from blocks in any order. Blocks are sorted by Order;
// duplicate keys are resolved by re-keying in the sorted order.
func NewList(blocks []*domain.Block) *List {
	l := &List{blocks: slices.Clone(blocks)}
	slices.SortStableFunc(l.blocks, func(a, b *domain.Block) int {
		switch {
		case a.Order < b.Order:
			return -1
		case a.Order > b.Order:
			return 1
		}
		return 0
	})
	for i := 1; i < len(l.blocks); i++ {
		if l.blocks[i].Order == l.blocks[i-1].Order {
			l.Rekey()
			break
		}
	}
	return l
}

// Blocks returns the blocks in order. The slice is a copy; the blocks are shared.
func (l *List) Blocks() []*domain.Block {
	return slices.Clone(l.blocks)
}

// Len returns the number of blocks.
func (l *List) Len() int {
	return len(l.blocks)
}

// Rekeys returns how many full re-key passes this list has performed.
func (l *List) Rekeys() int {
	return l.rekeys
}

// Get returns the block with the given id.
func (l *List) Get(blockID string) (*domain.Block, bool) {
	i := l.index(blockID)
	if i < 0 {
		return nil, false
	}
	return l.blocks[i], true
}

// Replace swaps in a new version of an existing block, keeping its position.
func (l *List) Replace(b *domain.Block) error {
	i := l.index(b.ID)
	if i < 0 {
		return domainerrors.BlockNotFoundf("block %s not found", b.ID)
	}
	b.Order = l.blocks[i].Order
	l.blocks[i] = b
	return nil
}

// InsertAfter places b directly after anchorID. An empty anchor inserts
// before the first block.
func (l *List) InsertAfter(anchorID string, b *domain.Block) (int64, error) {
	pos := 0
	if anchorID != "" {
		i := l.index(anchorID)
		if i < 0 {
			return 0, domainerrors.BlockNotFoundf("anchor block %s not found", anchorID)
		}
		pos = i + 1
	}
	return l.insertAt(pos, b)
}

// InsertBefore places b directly before beforeID. An empty id appends.
func (l *List) InsertBefore(beforeID string, b *domain.Block) (int64, error) {
	pos := len(l.blocks)
	if beforeID != "" {
		i := l.index(beforeID)
		if i < 0 {
			return 0, domainerrors.BlockNotFoundf("block %s not found", beforeID)
		}
		pos = i
	}
	return l.insertAt(pos, b)
}

// Append places b after the last block.
func (l *List) Append(b *domain.Block) int64 {
	order, _ := l.insertAt(len(l.blocks), b)
	return order
}

// Move relocates blockID to sit directly before beforeID, or at the end when
// beforeID is empty. Other blocks keep their relative order.
func (l *List) Move(blockID, beforeID string) (int64, error) {
	from := l.index(blockID)
	if from < 0 {
		return 0, domainerrors.BlockNotFoundf("block %s not found", blockID)
	}
	if beforeID == blockID {
		return l.blocks[from].Order, nil
	}
	if beforeID != "" && l.index(beforeID) < 0 {
		return 0, domainerrors.BlockNotFoundf("block %s not found", beforeID)
	}

	b := l.blocks[from]
	l.blocks = slices.Delete(l.blocks, from, from+1)

	pos := len(l.blocks)
	if beforeID != "" {
		pos = l.index(beforeID)
	}
	return l.insertAt(pos, b)
}

// Remove deletes blockID. Keys of the remaining blocks are untouched.
func (l *List) Remove(blockID string) (*domain.Block, error) {
	i := l.index(blockID)
	if i < 0 {
		return nil, domainerrors.BlockNotFoundf("block %s not found", blockID)
	}
	b := l.blocks[i]
	l.blocks = slices.Delete(l.blocks, i, i+1)
	return b, nil
}

// Rekey reassigns keys 1×, 2×, … OrderIncrement in current order.
func (l *List) Rekey() {
	for i, b := range l.blocks {
		b.Order = int64(i+1) * OrderIncrement
	}
	l.rekeys++
}

func (l *List) insertAt(pos int, b *domain.Block) (int64, error) {
	if l.index(b.ID) >= 0 {
		return 0, domainerrors.Conflict("block " + b.ID + " already in list")
	}

	key, ok := l.keyAt(pos)
	if !ok {
		l.Rekey()
		key, _ = l.keyAt(pos)
	}
	b.Order = key
	l.blocks = slices.Insert(l.blocks, pos, b)
	return key, nil
}

// keyAt computes a key for a block inserted at index pos. The region before
// the first block is bounded below by 0.
func (l *List) keyAt(pos int) (int64, bool) {
	var lower int64
	if pos > 0 {
		lower = l.blocks[pos-1].Order
	}
	if pos == len(l.blocks) {
		if lower > math.MaxInt64-OrderIncrement {
			return 0, false
		}
		return lower + OrderIncrement, true
	}

	upper := l.blocks[pos].Order
	if upper-lower < 2 {
		return 0, false
	}
	return lower + (upper-lower)/2, true
}

func (l *List) index(blockID string) int {
	return slices.IndexFunc(l.blocks, func(b *domain.Block) bool { return b.ID == blockID })
}
