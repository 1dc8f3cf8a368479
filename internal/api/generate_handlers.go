package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/roadbook/roadbook-server/internal/domain"
	domainerrors "github.com/roadbook/roadbook-server/internal/errors"
	"github.com/roadbook/roadbook-server/internal/generate"
)

func (s *Server) registerGenerateRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "generateItinerary",
		Method:      http.MethodPost,
		Path:        "/api/v1/generate",
		Summary:     "Generate itinerary",
		Description: "Generates an itinerary document for a city, day count and intent without saving it",
		Tags:        []string{"Generate"},
	}, s.handleGenerate)

	huma.Register(s.api, huma.Operation{
		OperationID:   "generateTrip",
		Method:        http.MethodPost,
		Path:          "/api/v1/trips/generate",
		Summary:       "Generate and save trip",
		Description:   "Generates an itinerary document and stores it for the caller",
		Tags:          []string{"Generate"},
		DefaultStatus: http.StatusCreated,
	}, s.handleGenerateTrip)
}

// === DTOs ===

// GenerateRequest is the request body for itinerary generation.
type GenerateRequest struct {
	City   string `json:"city" validate:"required,max=50" doc:"Destination city" example:"上海"`
	Days   int    `json:"days" validate:"gte=1,lte=3" doc:"Number of days (1-3)" example:"2"`
	Intent string `json:"intent" validate:"required,intent" doc:"Travel intent: family, couple, friends, food, or its label" example:"family"`
}

// GenerateInput wraps the generate request for Huma.
type GenerateInput struct {
	Body GenerateRequest
}

// GenerateTripInput wraps the generate-and-save request for Huma.
type GenerateTripInput struct {
	OwnerID string `header:"X-Owner-ID" doc:"Owner scope"`
	Body    GenerateRequest
}

// GenerateResponse is a generated document with its provenance.
type GenerateResponse struct {
	TripID     string             `json:"trip_id,omitempty" doc:"Stored trip ID (generate and save only)"`
	Info       domain.TripInfo    `json:"info" doc:"Document header"`
	Blocks     []BlockResponse    `json:"blocks" doc:"Ordered blocks"`
	Plan       *domain.NestedPlan `json:"plan" doc:"Nested day/activity view"`
	IsRealtime bool               `json:"is_realtime" doc:"True when built from live POI data"`
	Source     string             `json:"source" doc:"Data source: live, catalog, or catalog-default"`
}

// GenerateOutput wraps the generate response for Huma.
type GenerateOutput struct {
	Body GenerateResponse
}

// === Handlers ===

func (s *Server) handleGenerate(ctx context.Context, input *GenerateInput) (*GenerateOutput, error) {
	req, err := s.generateRequest(input.Body)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Trip.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	return &GenerateOutput{Body: generateResponse("", res.Info, res)}, nil
}

func (s *Server) handleGenerateTrip(ctx context.Context, input *GenerateTripInput) (*GenerateOutput, error) {
	ownerID, err := requireOwner(input.OwnerID)
	if err != nil {
		return nil, err
	}
	req, err := s.generateRequest(input.Body)
	if err != nil {
		return nil, err
	}

	doc, res, err := s.services.Trip.GenerateAndSave(ctx, ownerID, req)
	if err != nil {
		return nil, err
	}

	return &GenerateOutput{Body: generateResponse(doc.Info.ID, doc.Info, res)}, nil
}

func (s *Server) generateRequest(body GenerateRequest) (generate.Request, error) {
	if err := s.validator.Validate(body); err != nil {
		return generate.Request{}, err
	}
	intent, err := domain.ParseIntent(body.Intent)
	if err != nil {
		return generate.Request{}, domainerrors.Validation(err.Error())
	}
	return generate.Request{City: body.City, Days: body.Days, Intent: intent}, nil
}

func generateResponse(tripID string, info domain.TripInfo, res *generate.Result) GenerateResponse {
	return GenerateResponse{
		TripID:     tripID,
		Info:       info,
		Blocks:     blockResponses(res.Blocks),
		Plan:       res.Plan,
		IsRealtime: res.IsRealtime,
		Source:     string(res.Source),
	}
}
