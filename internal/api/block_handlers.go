package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/roadbook/roadbook-server/internal/document"
	"github.com/roadbook/roadbook-server/internal/domain"
)

func (s *Server) registerBlockRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "insertBlock",
		Method:        http.MethodPost,
		Path:          "/api/v1/trips/{id}/blocks",
		Summary:       "Insert block",
		Description:   "Inserts a block after or before an anchor block; appends when no anchor is given",
		Tags:          []string{"Blocks"},
		DefaultStatus: http.StatusCreated,
	}, s.handleInsertBlock)

	huma.Register(s.api, huma.Operation{
		OperationID: "moveBlock",
		Method:      http.MethodPost,
		Path:        "/api/v1/trips/{id}/blocks/{blockId}/move",
		Summary:     "Move block",
		Description: "Moves a block directly before another block, or to the end when before is null",
		Tags:        []string{"Blocks"},
	}, s.handleMoveBlock)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBlockContent",
		Method:      http.MethodPatch,
		Path:        "/api/v1/trips/{id}/blocks/{blockId}",
		Summary:     "Update block content",
		Description: "Merges a partial content patch into a block; type and id never change",
		Tags:        []string{"Blocks"},
	}, s.handleUpdateBlock)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeBlock",
		Method:      http.MethodDelete,
		Path:        "/api/v1/trips/{id}/blocks/{blockId}",
		Summary:     "Remove block",
		Description: "Deletes a block",
		Tags:        []string{"Blocks"},
	}, s.handleRemoveBlock)
}

// === DTOs ===

// EditResponse is returned by every block edit.
type EditResponse struct {
	Block          *BlockResponse  `json:"block,omitempty" doc:"The affected block"`
	Blocks         []BlockResponse `json:"blocks" doc:"Ordered blocks after the edit"`
	DayCount       int             `json:"day_count" doc:"Number of day dividers"`
	TotalCostMinor int64           `json:"total_cost_minor" doc:"Summed cost in minor units"`
}

// EditOutput wraps the edit response for Huma.
type EditOutput struct {
	Body EditResponse
}

// InsertBlockRequest is the request body for inserting a block.
type InsertBlockRequest struct {
	Type    string         `json:"type" validate:"required,blocktype" doc:"Block type"`
	After   string         `json:"after,omitempty" validate:"omitempty,excluded_with=Before" doc:"Insert after this block"`
	Before  string         `json:"before,omitempty" doc:"Insert before this block"`
	Start   bool           `json:"start,omitempty" doc:"Insert at the start when no anchor is given"`
	Content map[string]any `json:"content,omitempty" doc:"Raw content; missing fields take defaults"`
}

// InsertBlockInput wraps the insert request for Huma.
type InsertBlockInput struct {
	OwnerID string `header:"X-Owner-ID" doc:"Owner scope"`
	ID      string `path:"id" doc:"Trip ID"`
	Body    InsertBlockRequest
}

// MoveBlockRequest is the request body for moving a block.
type MoveBlockRequest struct {
	Before *string `json:"before,omitempty" doc:"Block to move before; null moves to the end"`
}

// MoveBlockInput wraps the move request for Huma.
type MoveBlockInput struct {
	OwnerID string `header:"X-Owner-ID" doc:"Owner scope"`
	ID      string `path:"id" doc:"Trip ID"`
	BlockID string `path:"blockId" doc:"Block ID"`
	Body    MoveBlockRequest
}

// UpdateBlockInput wraps a raw content patch for Huma.
type UpdateBlockInput struct {
	OwnerID string `header:"X-Owner-ID" doc:"Owner scope"`
	ID      string `path:"id" doc:"Trip ID"`
	BlockID string `path:"blockId" doc:"Block ID"`
	Body    map[string]any
}

// BlockIDInput identifies one block of a trip.
type BlockIDInput struct {
	OwnerID string `header:"X-Owner-ID" doc:"Owner scope"`
	ID      string `path:"id" doc:"Trip ID"`
	BlockID string `path:"blockId" doc:"Block ID"`
}

// === Handlers ===

func (s *Server) handleInsertBlock(ctx context.Context, input *InsertBlockInput) (*EditOutput, error) {
	ownerID, err := requireOwner(input.OwnerID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	body := input.Body
	pos := document.Position{After: body.After, Before: body.Before, Start: body.Start}
	res, err := s.services.Trip.InsertBlock(ctx, ownerID, input.ID, pos, domain.BlockType(body.Type), body.Content)
	if err != nil {
		return nil, err
	}

	return &EditOutput{Body: editResponse(res)}, nil
}

func (s *Server) handleMoveBlock(ctx context.Context, input *MoveBlockInput) (*EditOutput, error) {
	ownerID, err := requireOwner(input.OwnerID)
	if err != nil {
		return nil, err
	}

	before := ""
	if input.Body.Before != nil {
		before = *input.Body.Before
	}
	res, err := s.services.Trip.MoveBlock(ctx, ownerID, input.ID, input.BlockID, before)
	if err != nil {
		return nil, err
	}

	return &EditOutput{Body: editResponse(res)}, nil
}

func (s *Server) handleUpdateBlock(ctx context.Context, input *UpdateBlockInput) (*EditOutput, error) {
	ownerID, err := requireOwner(input.OwnerID)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Trip.UpdateBlockContent(ctx, ownerID, input.ID, input.BlockID, input.Body)
	if err != nil {
		return nil, err
	}

	return &EditOutput{Body: editResponse(res)}, nil
}

func (s *Server) handleRemoveBlock(ctx context.Context, input *BlockIDInput) (*EditOutput, error) {
	ownerID, err := requireOwner(input.OwnerID)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Trip.RemoveBlock(ctx, ownerID, input.ID, input.BlockID)
	if err != nil {
		return nil, err
	}

	return &EditOutput{Body: editResponse(res)}, nil
}

func editResponse(res *document.Result) EditResponse {
	out := EditResponse{
		Blocks:         blockResponses(res.Document.Blocks),
		DayCount:       res.DayCount,
		TotalCostMinor: res.TotalCostMinor,
	}
	if res.Block != nil {
		b := blockResponse(res.Block)
		out.Block = &b
	}
	return out
}
