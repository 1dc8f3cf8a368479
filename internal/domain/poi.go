package domain

// POI is a raw candidate place from the live source or the fallback catalog.
// DurationHours and Cost are zero until estimated, unless the source curated them.
type POI struct {
	Name          string  `json:"name"`
	Address       string  `json:"address"`
	Category      string  `json:"category"`
	District      string  `json:"district,omitempty"`
	Location      *LatLng `json:"location,omitempty"`
	DurationHours int     `json:"duration"`
	Cost          int64   `json:"cost"`
	Description   string  `json:"description,omitempty"`
}

// ScoredPOI is a POI with its relevance score for one intent.
type ScoredPOI struct {
	POI
	Score int `json:"score"`
}

// MainActivityHours is the duration at which a POI anchors a day.
const MainActivityHours = 4

// IsMain reports whether the POI is long enough to anchor a day.
func (p POI) IsMain() bool {
	return p.DurationHours >= MainActivityHours
}
