// Package blocks builds well-formed document blocks and keeps them ordered.
package blocks

import (
	"fmt"
	"time"

	"github.com/roadbook/roadbook-server/internal/domain"
	"github.com/roadbook/roadbook-server/internal/id"
)

// Content defaults.
const (
	DefaultPOIMinutes    = 60
	DefaultCurrency      = "CNY"
	DefaultChecklistItem = "待办事项"
	DefaultChecklistCols = 1
	MaxChecklistColumns  = 2
	defaultDayDividerDay = 1
)

// Ceilings for numeric content. Larger values are clamped so document totals
// stay far from int64 overflow.
const (
	MaxCostMinor       int64 = 1_000_000_000_000 // 100亿元
	MaxDurationMinutes int64 = 7 * 24 * 60
)

// Factory constructs blocks. Every constructed block is fully populated:
// missing fields take documented defaults and malformed numbers become 0.
type Factory struct {
	newID func() string
	now   func() time.Time
}

// NewFactory creates a factory using UUID block ids and the wall clock.
func NewFactory() *Factory {
	return &Factory{newID: id.NewBlockID, now: time.Now}
}

// NewFactoryWith creates a factory with injected id and clock sources.
func NewFactoryWith(newID func() string, now func() time.Time) *Factory {
	return &Factory{newID: newID, now: now}
}

// Now returns the factory clock.
func (f *Factory) Now() time.Time {
	return f.now()
}

// Build wraps typed content in a new block after sanitizing it.
func (f *Factory) Build(c domain.Content) *domain.Block {
	c = Sanitize(c)
	return &domain.Block{
		ID:        f.newID(),
		Type:      c.BlockType(),
		Content:   c,
		UpdatedAt: f.now(),
	}
}

// FromRaw builds a block of type t from untyped editor input.
func (f *Factory) FromRaw(t domain.BlockType, raw map[string]any) (*domain.Block, error) {
	c, err := Coerce(t, raw)
	if err != nil {
		return nil, err
	}
	return f.Build(c), nil
}

// DayDivider returns a divider for the given day with the default label.
func (f *Factory) DayDivider(dayIndex int) *domain.Block {
	return f.Build(domain.DayDividerContent{DayIndex: dayIndex})
}

// Patch merges raw fields over a block's current content and re-coerces the
// result. Type and ID are preserved; UpdatedAt moves.
func (f *Factory) Patch(b *domain.Block, patch map[string]any) (*domain.Block, error) {
	current, err := toFields(b.Content)
	if err != nil {
		return nil, fmt.Errorf("flatten %s content: %w", b.Type, err)
	}
	for k, v := range canonical(b.Type, patch) {
		current[k] = v
	}
	c, err := coerceFields(b.Type, current)
	if err != nil {
		return nil, err
	}

	out := *b
	out.Content = Sanitize(c)
	out.UpdatedAt = f.now()
	return &out, nil
}

// Coerce converts raw input into typed content for t.
func Coerce(t domain.BlockType, raw map[string]any) (domain.Content, error) {
	return coerceFields(t, canonical(t, raw))
}

func coerceFields(t domain.BlockType, in fields) (domain.Content, error) {
	switch t {
	case domain.BlockDayDivider:
		return domain.DayDividerContent{
			DayIndex: int(in.num("day_index", defaultDayDividerDay)),
			Label:    in.str("label"),
			Date:     in.str("date"),
			Theme:    in.str("theme"),
		}, nil
	case domain.BlockPOI:
		return domain.POIContent{
			Name:            in.str("name"),
			Address:         in.str("address"),
			Location:        location(in["location"]),
			StartTime:       in.str("start_time"),
			DurationMinutes: int(in.num("duration_minutes", DefaultPOIMinutes)),
			CostMinor:       in.num("cost_minor", 0),
			Currency:        in.str("currency"),
			Tags:            stringList(in["tags"]),
			Description:     in.str("description"),
		}, nil
	case domain.BlockTransport:
		return domain.TransportContent{
			Mode:            domain.TransportMode(in.str("mode")),
			From:            in.str("from"),
			To:              in.str("to"),
			DurationMinutes: int(in.num("duration_minutes", 0)),
			CostMinor:       in.num("cost_minor", 0),
			Note:            in.str("note"),
		}, nil
	case domain.BlockText:
		return domain.TextContent{
			Text:  in.str("text"),
			Style: domain.TextStyle(in.str("style")),
		}, nil
	case domain.BlockImage:
		return domain.ImageContent{
			Images:  images(in),
			Caption: in.str("caption"),
		}, nil
	case domain.BlockChecklist:
		return domain.ChecklistContent{
			Items:   checklistItems(in["items"]),
			Columns: int(in.num("columns", DefaultChecklistCols)),
		}, nil
	default:
		return nil, fmt.Errorf("unknown block type %q", t)
	}
}

// Sanitize enforces content invariants on typed input: non-negative numbers,
// closed enums, non-nil lists and the documented defaults for empty fields.
func Sanitize(c domain.Content) domain.Content {
	switch v := c.(type) {
	case domain.DayDividerContent:
		if v.DayIndex < 1 {
			v.DayIndex = defaultDayDividerDay
		}
		if v.Label == "" {
			v.Label = fmt.Sprintf("Day %d", v.DayIndex)
		}
		return v
	case domain.POIContent:
		v.DurationMinutes = int(clamp(int64(v.DurationMinutes), MaxDurationMinutes))
		v.CostMinor = clamp(v.CostMinor, MaxCostMinor)
		if v.Currency == "" {
			v.Currency = DefaultCurrency
		}
		if v.Tags == nil {
			v.Tags = []string{}
		}
		return v
	case domain.TransportContent:
		if !v.Mode.Valid() {
			v.Mode = domain.TransportWalk
		}
		v.DurationMinutes = int(clamp(int64(v.DurationMinutes), MaxDurationMinutes))
		v.CostMinor = clamp(v.CostMinor, MaxCostMinor)
		return v
	case domain.TextContent:
		if !v.Style.Valid() {
			v.Style = domain.TextNormal
		}
		return v
	case domain.ImageContent:
		if v.Images == nil {
			v.Images = []domain.ImageRef{}
		}
		return v
	case domain.ChecklistContent:
		if len(v.Items) == 0 {
			v.Items = []domain.ChecklistItem{{Text: DefaultChecklistItem}}
		}
		if v.Columns < 1 || v.Columns > MaxChecklistColumns {
			v.Columns = DefaultChecklistCols
		}
		return v
	}
	return c
}

func images(in fields) []domain.ImageRef {
	out := []domain.ImageRef{}
	if list, ok := in["images"].([]any); ok {
		for _, item := range list {
			switch v := item.(type) {
			case string:
				if v != "" {
					out = append(out, domain.ImageRef{URL: v})
				}
			case map[string]any:
				f := canonical(domain.BlockImage, v)
				ref := domain.ImageRef{URL: f.str("url"), FileRef: f.str("file_ref")}
				if ref.URL != "" || ref.FileRef != "" {
					out = append(out, ref)
				}
			}
		}
	}
	// Single-image payloads from older editors.
	if len(out) == 0 && (in.str("url") != "" || in.str("file_ref") != "") {
		out = append(out, domain.ImageRef{URL: in.str("url"), FileRef: in.str("file_ref")})
	}
	return out
}

func checklistItems(v any) []domain.ChecklistItem {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []domain.ChecklistItem
	for _, item := range list {
		switch it := item.(type) {
		case string:
			out = append(out, domain.ChecklistItem{Text: it})
		case map[string]any:
			f := fields(it)
			out = append(out, domain.ChecklistItem{Text: f.str("text"), Checked: f.boolean("checked")})
		}
	}
	return out
}
