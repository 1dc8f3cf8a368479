// Package search provides full-text search over itinerary documents using Bleve.
// A trip is indexed as one document carrying its title, city and the names of
// every place it visits, so a query like "外滩" finds the trips that stop there.
package search

import (
	"github.com/roadbook/roadbook-server/internal/domain"
)

// TripDocument is the flattened form of a trip stored in the Bleve index.
type TripDocument struct {
	ID       string   `json:"id"`
	OwnerID  string   `json:"owner_id"`
	Title    string   `json:"title"`
	City     string   `json:"city"`
	Intent   string   `json:"intent"`
	Status   string   `json:"status"`
	POINames []string `json:"poi_names,omitempty"`
	POITags  []string `json:"poi_tags,omitempty"`
	Notes    string   `json:"notes,omitempty"` // text and tip blocks
	DayCount int      `json:"day_count"`

	UpdatedAt int64 `json:"updated_at"` // Unix millis
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *TripDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"owner_id":   d.OwnerID,
		"title":      d.Title,
		"city":       d.City,
		"intent":     d.Intent,
		"status":     d.Status,
		"day_count":  d.DayCount,
		"updated_at": d.UpdatedAt,
	}
	if len(d.POINames) > 0 {
		m["poi_names"] = d.POINames
	}
	if len(d.POITags) > 0 {
		m["poi_tags"] = d.POITags
	}
	if d.Notes != "" {
		m["notes"] = d.Notes
	}
	return m
}

// TripToDocument flattens a domain document for indexing.
func TripToDocument(doc *domain.Document) *TripDocument {
	td := &TripDocument{
		ID:        doc.Info.ID,
		OwnerID:   doc.Info.OwnerID,
		Title:     doc.Info.Title,
		City:      doc.Info.City,
		Intent:    string(doc.Info.Intent),
		Status:    doc.Info.Status,
		DayCount:  doc.Info.DayCount,
		UpdatedAt: doc.Info.UpdatedAt.UnixMilli(),
	}

	seenTag := make(map[string]bool)
	var notes []byte
	for _, b := range doc.Blocks {
		switch c := b.Content.(type) {
		case domain.POIContent:
			if c.Name != "" {
				td.POINames = append(td.POINames, c.Name)
			}
			for _, tag := range c.Tags {
				if tag != "" && !seenTag[tag] {
					seenTag[tag] = true
					td.POITags = append(td.POITags, tag)
				}
			}
		case domain.TextContent:
			if c.Text != "" {
				if len(notes) > 0 {
					notes = append(notes, '\n')
				}
				notes = append(notes, c.Text...)
			}
		}
	}
	td.Notes = string(notes)
	return td
}
