package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// BlockType is the closed set of block variants.
type BlockType string

// Block variants.
const (
	BlockDayDivider BlockType = "day-divider"
	BlockPOI        BlockType = "poi"
	BlockTransport  BlockType = "transport"
	BlockText       BlockType = "text"
	BlockImage      BlockType = "image"
	BlockChecklist  BlockType = "checklist"
)

// BlockTypes returns every block variant.
func BlockTypes() []BlockType {
	return []BlockType{BlockDayDivider, BlockPOI, BlockTransport, BlockText, BlockImage, BlockChecklist}
}

// Valid reports whether t is a known block variant.
func (t BlockType) Valid() bool {
	switch t {
	case BlockDayDivider, BlockPOI, BlockTransport, BlockText, BlockImage, BlockChecklist:
		return true
	}
	return false
}

// Block is the atomic document unit. ID and Type never change after creation;
// Content is replaced on every edit and UpdatedAt moves with it.
type Block struct {
	ID        string    `json:"id"`
	Type      BlockType `json:"type"`
	Order     int64     `json:"order"`
	Content   Content   `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Content is implemented by exactly one struct per BlockType.
type Content interface {
	BlockType() BlockType
}

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DayDividerContent opens a day.
type DayDividerContent struct {
	DayIndex int    `json:"day_index"`
	Label    string `json:"label"`
	Date     string `json:"date"`
	Theme    string `json:"theme"`
}

// POIContent is a scheduled place.
type POIContent struct {
	Name            string   `json:"name"`
	Address         string   `json:"address"`
	Location        *LatLng  `json:"location"`
	StartTime       string   `json:"start_time"`
	DurationMinutes int      `json:"duration_minutes"`
	CostMinor       int64    `json:"cost_minor"`
	Currency        string   `json:"currency"`
	Tags            []string `json:"tags"`
	Description     string   `json:"description"`
}

// TransportMode is how a traveller moves between two places.
type TransportMode string

// Transport modes.
const (
	TransportWalk   TransportMode = "walk"
	TransportDrive  TransportMode = "drive"
	TransportBus    TransportMode = "bus"
	TransportSubway TransportMode = "subway"
	TransportBike   TransportMode = "bike"
	TransportTaxi   TransportMode = "taxi"
)

// Valid reports whether m is a known mode.
func (m TransportMode) Valid() bool {
	switch m {
	case TransportWalk, TransportDrive, TransportBus, TransportSubway, TransportBike, TransportTaxi:
		return true
	}
	return false
}

// TransportContent is a leg between two places.
type TransportContent struct {
	Mode            TransportMode `json:"mode"`
	From            string        `json:"from"`
	To              string        `json:"to"`
	DurationMinutes int           `json:"duration_minutes"`
	CostMinor       int64         `json:"cost_minor"`
	Note            string        `json:"note"`
}

// TextStyle controls how free text renders.
type TextStyle string

// Text styles.
const (
	TextNormal  TextStyle = "normal"
	TextTip     TextStyle = "tip"
	TextWarning TextStyle = "warning"
)

// Valid reports whether s is a known style.
func (s TextStyle) Valid() bool {
	return s == TextNormal || s == TextTip || s == TextWarning
}

// TextContent is free text.
type TextContent struct {
	Text  string    `json:"text"`
	Style TextStyle `json:"style"`
}

// ImageRef points at an uploaded or remote image.
type ImageRef struct {
	URL     string `json:"url"`
	FileRef string `json:"file_ref"`
}

// ImageContent is a gallery with a caption.
type ImageContent struct {
	Images  []ImageRef `json:"images"`
	Caption string     `json:"caption"`
}

// ChecklistItem is one checkbox line.
type ChecklistItem struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// ChecklistContent is a list of checkboxes laid out in one or two columns.
type ChecklistContent struct {
	Items   []ChecklistItem `json:"items"`
	Columns int             `json:"columns"`
}

func (DayDividerContent) BlockType() BlockType { return BlockDayDivider }
func (POIContent) BlockType() BlockType        { return BlockPOI }
func (TransportContent) BlockType() BlockType  { return BlockTransport }
func (TextContent) BlockType() BlockType       { return BlockText }
func (ImageContent) BlockType() BlockType      { return BlockImage }
func (ChecklistContent) BlockType() BlockType  { return BlockChecklist }

// CostMinor returns the cost carried by the block, if its variant carries one.
func (b *Block) CostMinor() (int64, bool) {
	switch c := b.Content.(type) {
	case POIContent:
		return c.CostMinor, true
	case TransportContent:
		return c.CostMinor, true
	default:
		return 0, false
	}
}

// Clone returns a copy of the block that shares no slices with the original.
func (b *Block) Clone() *Block {
	out := *b
	switch c := b.Content.(type) {
	case POIContent:
		c.Tags = append([]string(nil), c.Tags...)
		if c.Location != nil {
			loc := *c.Location
			c.Location = &loc
		}
		out.Content = c
	case ImageContent:
		c.Images = append([]ImageRef(nil), c.Images...)
		out.Content = c
	case ChecklistContent:
		c.Items = append([]ChecklistItem(nil), c.Items...)
		out.Content = c
	}
	return &out
}

type blockWire struct {
	ID        string          `json:"id"`
	Type      BlockType       `json:"type"`
	Order     int64           `json:"order"`
	Content   json.RawMessage `json:"content"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// UnmarshalJSON decodes the content into the struct matching Type.
func (b *Block) UnmarshalJSON(data []byte) error {
	var w blockWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	content, err := DecodeContent(w.Type, w.Content)
	if err != nil {
		return fmt.Errorf("block %s: %w", w.ID, err)
	}

	*b = Block{ID: w.ID, Type: w.Type, Order: w.Order, Content: content, UpdatedAt: w.UpdatedAt}
	return nil
}

// DecodeContent decodes a stored content payload for the given block type.
func DecodeContent(t BlockType, raw json.RawMessage) (Content, error) {
	var target Content
	var err error
	switch t {
	case BlockDayDivider:
		var c DayDividerContent
		err = decodeInto(raw, &c)
		target = c
	case BlockPOI:
		var c POIContent
		err = decodeInto(raw, &c)
		target = c
	case BlockTransport:
		var c TransportContent
		err = decodeInto(raw, &c)
		target = c
	case BlockText:
		var c TextContent
		err = decodeInto(raw, &c)
		target = c
	case BlockImage:
		var c ImageContent
		err = decodeInto(raw, &c)
		target = c
	case BlockChecklist:
		var c ChecklistContent
		err = decodeInto(raw, &c)
		target = c
	default:
		return nil, fmt.Errorf("unknown block type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s content: %w", t, err)
	}
	return target, nil
}

func decodeInto(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
