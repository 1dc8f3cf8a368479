package domain

import "time"

// Trip statuses.
const (
	TripStatusPlanning  = "planning"
	TripStatusOngoing   = "ongoing"
	TripStatusCompleted = "completed"
)

// DefaultTripTitle is used when a document is created without a title.
const DefaultTripTitle = "我的路书"

// TripInfo is the document header. DayCount and TotalCostMinor are derived
// from the block list and are recomputed on every block mutation.
type TripInfo struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Title          string    `json:"title"`
	City           string    `json:"city"`
	DayCount       int       `json:"day_count"`
	Intent         Intent    `json:"intent"`
	Status         string    `json:"status"`
	TotalCostMinor int64     `json:"total_cost_minor"`
	Tips           string    `json:"tips,omitempty"`
	CoverRef       string    `json:"cover_ref,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Document is one itinerary: its header plus the ordered block collection.
type Document struct {
	Info   TripInfo `json:"info"`
	Blocks []*Block `json:"blocks"`
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	cp := &Document{Info: d.Info, Blocks: make([]*Block, len(d.Blocks))}
	for i, b := range d.Blocks {
		cp.Blocks[i] = b.Clone()
	}
	return cp
}

// TripPatch is a partial TripInfo update. Nil fields are left untouched.
type TripPatch struct {
	Title    *string
	City     *string
	Intent   *Intent
	Status   *string
	CoverRef *string
}

// Apply merges the patch into info.
func (p TripPatch) Apply(info *TripInfo) {
	if p.Title != nil {
		info.Title = *p.Title
	}
	if p.City != nil {
		info.City = *p.City
	}
	if p.Intent != nil {
		info.Intent = *p.Intent
	}
	if p.Status != nil {
		info.Status = *p.Status
	}
	if p.CoverRef != nil {
		info.CoverRef = *p.CoverRef
	}
}

// TripSummary is a list entry; block content is excluded.
type TripSummary struct {
	TripInfo
	BlockCount int `json:"block_count"`
	POICount   int `json:"poi_count"`
}

// Summarize builds the list entry for a document.
func Summarize(info TripInfo, blocks []*Block) TripSummary {
	s := TripSummary{TripInfo: info, BlockCount: len(blocks)}
	for _, b := range blocks {
		if b.Type == BlockPOI {
			s.POICount++
		}
	}
	return s
}

// TripStats aggregates an owner's documents.
type TripStats struct {
	TripCount int `json:"trip_count"`
	POICount  int `json:"poi_count"`
	CityCount int `json:"city_count"`
}
