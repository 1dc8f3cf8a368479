package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/roadbook/roadbook-server/internal/domain"
	"github.com/roadbook/roadbook-server/internal/search"
	"github.com/roadbook/roadbook-server/internal/service"
)

func (s *Server) registerTripRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTrips",
		Method:      http.MethodGet,
		Path:        "/api/v1/trips",
		Summary:     "List trips",
		Description: "Returns the caller's trip summaries, most recently updated first",
		Tags:        []string{"Trips"},
	}, s.handleListTrips)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTrip",
		Method:        http.MethodPost,
		Path:          "/api/v1/trips",
		Summary:       "Create trip",
		Description:   "Creates an empty document holding one day divider",
		Tags:          []string{"Trips"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateTrip)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchTrips",
		Method:      http.MethodGet,
		Path:        "/api/v1/trips/search",
		Summary:     "Search trips",
		Description: "Full-text search over the caller's trips by title, city and place names",
		Tags:        []string{"Trips"},
	}, s.handleSearchTrips)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTrip",
		Method:      http.MethodGet,
		Path:        "/api/v1/trips/{id}",
		Summary:     "Get trip",
		Description: "Returns a document with its ordered blocks",
		Tags:        []string{"Trips"},
	}, s.handleGetTrip)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTrip",
		Method:      http.MethodPatch,
		Path:        "/api/v1/trips/{id}",
		Summary:     "Update trip",
		Description: "Merges a partial header update (title, city, intent, status, cover)",
		Tags:        []string{"Trips"},
	}, s.handleUpdateTrip)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteTrip",
		Method:        http.MethodDelete,
		Path:          "/api/v1/trips/{id}",
		Summary:       "Delete trip",
		Description:   "Deletes a document",
		Tags:          []string{"Trips"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteTrip)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTripPlan",
		Method:      http.MethodGet,
		Path:        "/api/v1/trips/{id}/plan",
		Summary:     "Get nested plan",
		Description: "Returns the day/activity view of a document",
		Tags:        []string{"Trips"},
	}, s.handleGetTripPlan)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTripStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Trip stats",
		Description: "Returns trip, place and city counts for the caller",
		Tags:        []string{"Trips"},
	}, s.handleGetStats)
}

// === DTOs ===

// BlockResponse is one block in API responses.
type BlockResponse struct {
	ID        string           `json:"id" doc:"Block ID"`
	Type      domain.BlockType `json:"type" doc:"Block type"`
	Order     int64            `json:"order" doc:"Sort key"`
	Content   any              `json:"content" doc:"Type-specific content"`
	UpdatedAt time.Time        `json:"updated_at" doc:"Last content change"`
}

// TripResponse is a full document.
type TripResponse struct {
	Info   domain.TripInfo `json:"info" doc:"Document header"`
	Blocks []BlockResponse `json:"blocks" doc:"Ordered blocks"`
}

// TripOutput wraps a document for Huma.
type TripOutput struct {
	Body TripResponse
}

// OwnerInput carries only the owner scope.
type OwnerInput struct {
	OwnerID string `header:"X-Owner-ID" doc:"Owner scope"`
}

// TripIDInput identifies one of the caller's trips.
type TripIDInput struct {
	OwnerID string `header:"X-Owner-ID" doc:"Owner scope"`
	ID      string `path:"id" doc:"Trip ID"`
}

// ListTripsResponse contains trip summaries.
type ListTripsResponse struct {
	Trips []domain.TripSummary `json:"trips" doc:"Trip summaries"`
}

// ListTripsOutput wraps the list response for Huma.
type ListTripsOutput struct {
	Body ListTripsResponse
}

// CreateTripRequest is the request body for creating a trip.
type CreateTripRequest struct {
	Title  string `json:"title,omitempty" validate:"omitempty,max=100" doc:"Title (default 我的路书)"`
	City   string `json:"city,omitempty" validate:"omitempty,max=50" doc:"City"`
	Intent string `json:"intent,omitempty" validate:"omitempty,intent" doc:"Travel intent"`
}

// CreateTripInput wraps the create request for Huma.
type CreateTripInput struct {
	OwnerID string `header:"X-Owner-ID" doc:"Owner scope"`
	Body    CreateTripRequest
}

// UpdateTripRequest is the request body for a partial header update.
type UpdateTripRequest struct {
	Title    *string `json:"title,omitempty" validate:"omitempty,min=1,max=100" doc:"Title"`
	City     *string `json:"city,omitempty" validate:"omitempty,max=50" doc:"City"`
	Intent   *string `json:"intent,omitempty" validate:"omitempty,intent" doc:"Travel intent"`
	Status   *string `json:"status,omitempty" validate:"omitempty,oneof=planning ongoing completed" doc:"Trip status"`
	CoverRef *string `json:"cover_ref,omitempty" validate:"omitempty,max=500" doc:"Cover image reference"`
}

// UpdateTripInput wraps the update request for Huma.
type UpdateTripInput struct {
	OwnerID string `header:"X-Owner-ID" doc:"Owner scope"`
	ID      string `path:"id" doc:"Trip ID"`
	Body    UpdateTripRequest
}

// PlanOutput wraps the nested plan for Huma.
type PlanOutput struct {
	Body *domain.NestedPlan
}

// StatsOutput wraps the stats for Huma.
type StatsOutput struct {
	Body *domain.TripStats
}

// SearchTripsInput contains search parameters.
type SearchTripsInput struct {
	OwnerID string `header:"X-Owner-ID" doc:"Owner scope"`
	Query   string `query:"q" doc:"Search text"`
	Intent  string `query:"intent" doc:"Filter by intent"`
	Tag     string `query:"tag" doc:"Filter by place tag"`
	Limit   int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum results"`
	Offset  int    `query:"offset" minimum:"0" doc:"Results to skip"`
}

// SearchTripsOutput wraps the search result for Huma.
type SearchTripsOutput struct {
	Body *search.SearchResult
}

// === Handlers ===

func (s *Server) handleListTrips(ctx context.Context, input *OwnerInput) (*ListTripsOutput, error) {
	ownerID, err := requireOwner(input.OwnerID)
	if err != nil {
		return nil, err
	}

	trips, err := s.services.Trip.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return &ListTripsOutput{Body: ListTripsResponse{Trips: trips}}, nil
}

func (s *Server) handleCreateTrip(ctx context.Context, input *CreateTripInput) (*TripOutput, error) {
	ownerID, err := requireOwner(input.OwnerID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	in := service.CreateTripInput{Title: input.Body.Title, City: input.Body.City}
	if input.Body.Intent != "" {
		intent, _ := domain.ParseIntent(input.Body.Intent)
		in.Intent = intent
	}

	doc, err := s.services.Trip.Create(ctx, ownerID, in)
	if err != nil {
		return nil, err
	}

	return &TripOutput{Body: tripResponse(doc)}, nil
}

func (s *Server) handleGetTrip(ctx context.Context, input *TripIDInput) (*TripOutput, error) {
	ownerID, err := requireOwner(input.OwnerID)
	if err != nil {
		return nil, err
	}

	doc, err := s.services.Trip.Get(ctx, ownerID, input.ID)
	if err != nil {
		return nil, err
	}

	return &TripOutput{Body: tripResponse(doc)}, nil
}

func (s *Server) handleUpdateTrip(ctx context.Context, input *UpdateTripInput) (*TripOutput, error) {
	ownerID, err := requireOwner(input.OwnerID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	body := input.Body
	patch := domain.TripPatch{
		Title:    body.Title,
		City:     body.City,
		Status:   body.Status,
		CoverRef: body.CoverRef,
	}
	if body.Intent != nil {
		intent, _ := domain.ParseIntent(*body.Intent)
		patch.Intent = &intent
	}

	doc, err := s.services.Trip.Update(ctx, ownerID, input.ID, patch)
	if err != nil {
		return nil, err
	}

	return &TripOutput{Body: tripResponse(doc)}, nil
}

func (s *Server) handleDeleteTrip(ctx context.Context, input *TripIDInput) (*struct{}, error) {
	ownerID, err := requireOwner(input.OwnerID)
	if err != nil {
		return nil, err
	}

	if err := s.services.Trip.Delete(ctx, ownerID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleGetTripPlan(ctx context.Context, input *TripIDInput) (*PlanOutput, error) {
	ownerID, err := requireOwner(input.OwnerID)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Trip.Plan(ctx, ownerID, input.ID)
	if err != nil {
		return nil, err
	}

	return &PlanOutput{Body: p}, nil
}

func (s *Server) handleGetStats(ctx context.Context, input *OwnerInput) (*StatsOutput, error) {
	ownerID, err := requireOwner(input.OwnerID)
	if err != nil {
		return nil, err
	}

	stats, err := s.services.Trip.Stats(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return &StatsOutput{Body: stats}, nil
}

func (s *Server) handleSearchTrips(ctx context.Context, input *SearchTripsInput) (*SearchTripsOutput, error) {
	ownerID, err := requireOwner(input.OwnerID)
	if err != nil {
		return nil, err
	}

	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.Intent = input.Intent
	params.Tag = input.Tag
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Offset = input.Offset
	if input.Intent != "" {
		if intent, err := domain.ParseIntent(input.Intent); err == nil {
			params.Intent = string(intent)
		}
	}

	result, err := s.services.Trip.Search(ctx, ownerID, params)
	if err != nil {
		return nil, err
	}

	return &SearchTripsOutput{Body: result}, nil
}

func tripResponse(doc *domain.Document) TripResponse {
	return TripResponse{Info: doc.Info, Blocks: blockResponses(doc.Blocks)}
}

func blockResponse(b *domain.Block) BlockResponse {
	return BlockResponse{
		ID:        b.ID,
		Type:      b.Type,
		Order:     b.Order,
		Content:   b.Content,
		UpdatedAt: b.UpdatedAt,
	}
}

func blockResponses(bs []*domain.Block) []BlockResponse {
	out := make([]BlockResponse, len(bs))
	for i, b := range bs {
		out[i] = blockResponse(b)
	}
	return out
}
