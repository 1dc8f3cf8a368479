// Package document applies edits to itinerary documents.
//
// Every operation takes a Document value and returns a new one; the input is
// never mutated. Aggregates (day count, total cost) are recomputed on each edit.
package document

import (
	"math"

	"github.com/roadbook/roadbook-server/internal/blocks"
	"github.com/roadbook/roadbook-server/internal/domain"
	domainerrors "github.com/roadbook/roadbook-server/internal/errors"
)

// Position says where an inserted block goes.
type Position struct {
	// After inserts directly after this block. Ignored when Before is set.
	After string
	// Before inserts directly before this block.
	Before string
	// Start inserts before the first block when neither id is set.
	Start bool
}

// Result is the outcome of an edit.
type Result struct {
	Document       *domain.Document
	Block          *domain.Block // the inserted, moved, updated or removed block
	DayCount       int
	TotalCostMinor int64
}

// Editor applies block edits.
type Editor struct {
	factory *blocks.Factory
}

// NewEditor creates an editor that builds blocks with f.
func NewEditor(f *blocks.Factory) *Editor {
	return &Editor{factory: f}
}

// New creates an empty document holding a single day divider.
func (e *Editor) New(info domain.TripInfo) *domain.Document {
	if info.Title == "" {
		info.Title = domain.DefaultTripTitle
	}
	if info.Status == "" {
		info.Status = domain.TripStatusPlanning
	}
	l := blocks.NewList(nil)
	l.Append(e.factory.DayDivider(1))

	doc := &domain.Document{Info: info, Blocks: l.Blocks()}
	Recompute(doc)
	return doc
}

// InsertBlock builds a block of type t from raw content and inserts it at pos.
// A day divider without an explicit day index continues the numbering.
func (e *Editor) InsertBlock(doc *domain.Document, pos Position, t domain.BlockType, raw map[string]any) (*Result, error) {
	if !t.Valid() {
		return nil, domainerrors.Validationf("unknown block type %q", t)
	}
	if t == domain.BlockDayDivider && !hasDayIndex(raw) {
		raw = withDayIndex(raw, maxDayIndex(doc.Blocks)+1)
	}

	b, err := e.factory.FromRaw(t, raw)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	l := cloneList(doc)
	switch {
	case pos.Before != "":
		_, err = l.InsertBefore(pos.Before, b)
	case pos.After != "":
		_, err = l.InsertAfter(pos.After, b)
	case pos.Start:
		_, err = l.InsertAfter("", b)
	default:
		l.Append(b)
	}
	if err != nil {
		return nil, err
	}
	return result(doc, l, b), nil
}

// MoveBlock moves blockID directly before beforeID, or to the end when beforeID is empty.
func (e *Editor) MoveBlock(doc *domain.Document, blockID, beforeID string) (*Result, error) {
	l := cloneList(doc)
	if _, err := l.Move(blockID, beforeID); err != nil {
		return nil, err
	}
	b, _ := l.Get(blockID)
	return result(doc, l, b), nil
}

// RemoveBlock deletes blockID.
func (e *Editor) RemoveBlock(doc *domain.Document, blockID string) (*Result, error) {
	l := cloneList(doc)
	b, err := l.Remove(blockID)
	if err != nil {
		return nil, err
	}
	return result(doc, l, b), nil
}

// UpdateBlockContent merges patch into the block's content. Type and id never change.
func (e *Editor) UpdateBlockContent(doc *domain.Document, blockID string, patch map[string]any) (*Result, error) {
	l := cloneList(doc)
	current, ok := l.Get(blockID)
	if !ok {
		return nil, domainerrors.BlockNotFoundf("block %s not found", blockID)
	}

	updated, err := e.factory.Patch(current, patch)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}
	if err := l.Replace(updated); err != nil {
		return nil, err
	}
	return result(doc, l, updated), nil
}

// Recompute derives DayCount and TotalCostMinor from the block list.
func Recompute(doc *domain.Document) {
	doc.Info.DayCount, doc.Info.TotalCostMinor = Aggregates(doc.Blocks)
}

// Aggregates returns the number of day dividers and the summed block cost.
// Negative costs count as zero and the sum saturates at math.MaxInt64.
func Aggregates(bs []*domain.Block) (dayCount int, totalCostMinor int64) {
	for _, b := range bs {
		if b.Type == domain.BlockDayDivider {
			dayCount++
		}
		c, ok := b.CostMinor()
		if !ok || c <= 0 {
			continue
		}
		if totalCostMinor > math.MaxInt64-c {
			totalCostMinor = math.MaxInt64
			continue
		}
		totalCostMinor += c
	}
	return dayCount, totalCostMinor
}

func cloneList(doc *domain.Document) *blocks.List {
	cp := make([]*domain.Block, len(doc.Blocks))
	for i, b := range doc.Blocks {
		cp[i] = b.Clone()
	}
	return blocks.NewList(cp)
}

func result(prev *domain.Document, l *blocks.List, b *domain.Block) *Result {
	next := &domain.Document{Info: prev.Info, Blocks: l.Blocks()}
	Recompute(next)
	return &Result{
		Document:       next,
		Block:          b,
		DayCount:       next.Info.DayCount,
		TotalCostMinor: next.Info.TotalCostMinor,
	}
}

func hasDayIndex(raw map[string]any) bool {
	for _, k := range []string{"day_index", "dayIndex", "day"} {
		if v, ok := raw[k]; ok && v != nil {
			return true
		}
	}
	return false
}

func withDayIndex(raw map[string]any, n int) map[string]any {
	out := make(map[string]any, len(raw)+1)
	for k, v := range raw {
		out[k] = v
	}
	out["day_index"] = n
	return out
}

func maxDayIndex(bs []*domain.Block) int {
	highest := 0
	for _, b := range bs {
		if d, ok := b.Content.(domain.DayDividerContent); ok && d.DayIndex > highest {
			highest = d.DayIndex
		}
	}
	return highest
}
