package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for trip documents.
//
// Titles, cities and place names are mostly Chinese, so text fields use the
// CJK bigram analyzer. Owner, intent and tags are exact-match keywords.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = cjk.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Title - primary search target
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = cjk.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	// City - searchable and stored for display
	cityFieldMapping := bleve.NewTextFieldMapping()
	cityFieldMapping.Analyzer = cjk.AnalyzerName
	cityFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("city", cityFieldMapping)

	// Place names from POI blocks
	poiFieldMapping := bleve.NewTextFieldMapping()
	poiFieldMapping.Analyzer = cjk.AnalyzerName
	poiFieldMapping.Store = true
	poiFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("poi_names", poiFieldMapping)

	// Notes - searchable but not stored
	notesFieldMapping := bleve.NewTextFieldMapping()
	notesFieldMapping.Analyzer = cjk.AnalyzerName
	notesFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("notes", notesFieldMapping)

	// --- Keyword fields (exact match) ---

	for _, field := range []string{"id", "owner_id", "intent", "status", "poi_tags"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = field != "id"
		docMapping.AddFieldMappingsAt(field, fm)
	}

	// --- Numeric fields (sorting) ---

	dayCountFieldMapping := bleve.NewNumericFieldMapping()
	dayCountFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("day_count", dayCountFieldMapping)

	updatedAtFieldMapping := bleve.NewNumericFieldMapping()
	updatedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
