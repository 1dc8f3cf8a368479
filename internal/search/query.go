package search

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a trip search. OwnerID is required; results never
// cross owners.
type SearchParams struct {
	OwnerID string
	Query   string // free text; empty lists every trip of the owner
	Intent  string // exact intent filter (optional)
	Tag     string // exact POI tag filter (optional)

	Limit  int
	Offset int

	Highlight bool
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:     20,
		Highlight: true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit is one matching trip.
type SearchHit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	City       string            `json:"city"`
	Intent     string            `json:"intent"`
	DayCount   int               `json:"day_count"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search executes a search query.
func (s *TripIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.OwnerID == "" {
		return nil, fmt.Errorf("search: owner id is required")
	}
	if params.Limit <= 0 {
		params.Limit = DefaultSearchParams().Limit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	searchRequest := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	if params.Query == "" {
		searchRequest.SortBy([]string{"-updated_at", "id"})
	} else {
		searchRequest.SortBy([]string{"-_score", "-updated_at"})
	}

	if params.Highlight && params.Query != "" {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("title")
		searchRequest.Highlight.AddField("poi_names")
	}

	searchRequest.Fields = []string{"title", "city", "intent", "day_count"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{
			ID:    hit.ID,
			Score: hit.Score,
		}
		if t, ok := hit.Fields["title"].(string); ok {
			searchHit.Title = t
		}
		if c, ok := hit.Fields["city"].(string); ok {
			searchHit.City = c
		}
		if i, ok := hit.Fields["intent"].(string); ok {
			searchHit.Intent = i
		}
		if d, ok := hit.Fields["day_count"].(float64); ok {
			searchHit.DayCount = int(d)
		}

		if len(hit.Fragments) > 0 {
			searchHit.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					searchHit.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, searchHit)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	owner := bleve.NewTermQuery(params.OwnerID)
	owner.SetField("owner_id")
	queries := []query.Query{owner}

	if params.Query != "" {
		titleMatch := bleve.NewMatchQuery(params.Query)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		cityMatch := bleve.NewMatchQuery(params.Query)
		cityMatch.SetField("city")
		cityMatch.SetBoost(2.0)

		poiMatch := bleve.NewMatchQuery(params.Query)
		poiMatch.SetField("poi_names")
		poiMatch.SetBoost(1.5)

		notesMatch := bleve.NewMatchQuery(params.Query)
		notesMatch.SetField("notes")
		notesMatch.SetBoost(0.5)

		tagMatch := bleve.NewTermQuery(params.Query)
		tagMatch.SetField("poi_tags")

		queries = append(queries, bleve.NewDisjunctionQuery(titleMatch, cityMatch, poiMatch, notesMatch, tagMatch))
	}

	if params.Intent != "" {
		iq := bleve.NewTermQuery(params.Intent)
		iq.SetField("intent")
		queries = append(queries, iq)
	}

	if params.Tag != "" {
		tq := bleve.NewTermQuery(params.Tag)
		tq.SetField("poi_tags")
		queries = append(queries, tq)
	}

	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}
