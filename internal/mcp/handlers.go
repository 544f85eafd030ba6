package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pkortright/flashdeck/internal/card"
	"github.com/pkortright/flashdeck/internal/config"
	"github.com/pkortright/flashdeck/internal/deck"
	"github.com/pkortright/flashdeck/internal/errors"
	"github.com/pkortright/flashdeck/internal/session"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	session *session.Session
	cfg     *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(s *session.Session, cfg *config.Config) *Handlers {
	return &Handlers{session: s, cfg: cfg}
}

// Request types for each tool

// LoadRequest represents the arguments for deck_load.
type LoadRequest struct {
	Source string `json:"source,omitempty"`
}

// FilterRequest represents the arguments for deck_filter.
type FilterRequest struct {
	Search     string `json:"search,omitempty"`
	Category   string `json:"category,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Usefulness string `json:"usefulness,omitempty"`
}

// LabelRequest represents the arguments for card_label.
type LabelRequest struct {
	ID            string `json:"id,omitempty"`
	ToggleGrasped bool   `json:"toggle_grasped,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
	Usefulness    string `json:"usefulness,omitempty"`
}

// ExportRequest represents the arguments for deck_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for deck_import.
type ImportRequest struct {
	Path string `json:"path"`
}

// ValidateRequest represents the arguments for deck_validate.
type ValidateRequest struct {
	Source string `json:"source,omitempty"`
	Fix    bool   `json:"fix,omitempty"`
}

// Handler implementations

// HandleLoad handles the deck_load tool call.
func (h *Handlers) HandleLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LoadRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.session.LoadDataset(ctx, input.Source)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCurrent handles the deck_current tool call.
func (h *Handlers) HandleCurrent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.viewResult(h.session.Current())
}

// HandleNext handles the deck_next tool call.
func (h *Handlers) HandleNext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.viewResult(h.session.Next())
}

// HandlePrev handles the deck_prev tool call.
func (h *Handlers) HandlePrev(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.viewResult(h.session.Prev())
}

// HandleShuffle handles the deck_shuffle tool call.
func (h *Handlers) HandleShuffle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.viewResult(h.session.Shuffle())
}

// HandleReset handles the deck_reset tool call.
func (h *Handlers) HandleReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.viewResult(h.session.Reset())
}

func (h *Handlers) viewResult(view *session.CardView, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(view)
}

// HandleFilter handles the deck_filter tool call.
func (h *Handlers) HandleFilter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FilterRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.session.SetFilter(deck.Query{
		Search:     input.Search,
		Category:   input.Category,
		Difficulty: input.Difficulty,
		Usefulness: input.Usefulness,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLabel handles the card_label tool call. Multiple label fields may be
// set in one call; they are applied in order and the final label is returned.
func (h *Handlers) HandleLabel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LabelRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if !input.ToggleGrasped && input.Difficulty == "" && input.Usefulness == "" {
		return errorResult(errors.NewInvalidRequest("at least one of toggle_grasped, difficulty, usefulness is required")), nil
	}

	var out *session.LabelOutput
	id := input.ID
	if input.ToggleGrasped {
		out, err = h.session.ToggleGrasped(ctx, id)
		if err != nil {
			return errorResult(err), nil
		}
		id = out.ID
	}
	if input.Difficulty != "" {
		out, err = h.session.SetDifficulty(ctx, id, input.Difficulty)
		if err != nil {
			return errorResult(err), nil
		}
		id = out.ID
	}
	if input.Usefulness != "" {
		out, err = h.session.SetUsefulness(ctx, id, input.Usefulness)
		if err != nil {
			return errorResult(err), nil
		}
	}

	return successResult(out)
}

// HandleStats handles the deck_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !h.session.Loaded() {
		return errorResult(errors.NewNoDataset()), nil
	}
	return successResult(map[string]any{
		"source":  h.session.Source(),
		"stats":   h.session.Stats(),
		"options": h.session.Options(),
		"issues":  h.session.Issues(),
	})
}

// HandleExport handles the deck_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.session.Export(input.Path)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the deck_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.session.Import(ctx, input.Path)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleValidate handles the deck_validate tool call.
func (h *Handlers) HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ValidateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var cards []card.Card
	var issues []card.Issue
	if input.Source != "" {
		timeout := time.Duration(h.cfg.FetchTimeoutSecs) * time.Second
		data, err := session.FetchDataset(ctx, input.Source, timeout)
		if err != nil {
			return errorResult(err), nil
		}
		loaded, err := card.LoadJSON(data)
		if err != nil {
			return errorResult(err), nil
		}
		cards = loaded.Cards
		issues = loaded.Issues
	} else {
		if !h.session.Loaded() {
			return errorResult(errors.NewNoDataset()), nil
		}
		cards = h.session.Cards()
		issues = h.session.Issues()
	}

	lint := card.Lint(cards, input.Fix)

	return successResult(map[string]any{
		"cards":       len(cards),
		"issues":      issues,
		"suggestions": lint.Suggestions,
	})
}

// errorResult creates an MCP error result from any error.
// Internal error details are suppressed to avoid leaking file paths or SQL
// errors to the client.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if deckErr, ok := err.(*errors.DeckError); ok {
		errorObj := map[string]any{
			"code":    deckErr.Code,
			"message": deckErr.Message,
			"status":  deckErr.Status,
		}
		if deckErr.Code != errors.ErrInternal && deckErr.Details != nil {
			errorObj["details"] = deckErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
