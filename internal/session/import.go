package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkortright/flashdeck/internal/card"
	"github.com/pkortright/flashdeck/internal/deck"
	"github.com/pkortright/flashdeck/internal/errors"
	"github.com/pkortright/flashdeck/internal/labels"
)

// ImportOutput contains the result of an import.
type ImportOutput struct {
	Source     string       `json:"source"`
	Cards      int          `json:"cards"`
	Labels     int          `json:"labels"`
	IssueCount int          `json:"issue_count"`
	Issues     []card.Issue `json:"issues,omitempty"`
}

// ImportJSON installs a dataset from raw bytes. Two shapes are accepted: a
// bare card array, which replaces the card store only, and an export
// envelope ({"dataset": ..., "labels": ...}), which replaces both the card
// store and the label mapping. A failure at any stage leaves the session
// unchanged.
func (s *Session) ImportJSON(ctx context.Context, data []byte, source string) (*ImportOutput, error) {
	result, labelMap, err := parseImport(data)
	if err != nil {
		return nil, err
	}

	if labelMap != nil {
		if err := s.store.ReplaceAll(ctx, labelMap); err != nil {
			return nil, err
		}
	} else {
		labelMap, err = s.store.LoadAll(ctx)
		if err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.cards = result.Cards
	s.byID = card.IndexByID(result.Cards)
	s.labels = labelMap
	s.issues = result.Issues
	s.source = source
	s.loaded = true
	s.query = deck.Query{}
	s.deck = deck.SetOrder(deck.ComputeOrder(s.cards, s.labels, s.query))

	return &ImportOutput{
		Source:     source,
		Cards:      len(result.Cards),
		Labels:     len(labelMap),
		IssueCount: len(result.Issues),
		Issues:     sampleIssues(result.Issues),
	}, nil
}

// Import reads path and installs its contents via ImportJSON.
func (s *Session) Import(ctx context.Context, path string) (*ImportOutput, error) {
	if path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if err := ValidatePath(path, PathCheckRead, s.cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		if de, ok := err.(*errors.DeckError); ok {
			return nil, de
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxDatasetBytes))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}

	return s.ImportJSON(ctx, data, path)
}

// parseImport detects the payload shape and decodes it. The label mapping is
// nil for a bare card array.
func parseImport(data []byte) (*card.LoadResult, map[string]labels.Label, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, nil, errors.NewImportFormat("empty input")
	}

	switch trimmed[0] {
	case '[':
		result, err := card.LoadJSON(data)
		if err != nil {
			return nil, nil, errors.NewImportParse(err)
		}
		return result, nil, nil

	case '{':
		var env struct {
			Dataset json.RawMessage         `json:"dataset"`
			Labels  map[string]labels.Label `json:"labels"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, nil, errors.NewImportParse(err)
		}
		if len(env.Dataset) == 0 {
			return nil, nil, errors.NewImportFormat("object input must contain a dataset array")
		}
		result, err := card.LoadJSON(env.Dataset)
		if err != nil {
			return nil, nil, errors.NewImportFormat("dataset must be an array of cards")
		}
		if env.Labels == nil {
			env.Labels = map[string]labels.Label{}
		}
		return result, env.Labels, nil

	default:
		// Invalid JSON is a parse failure; valid JSON of the wrong shape
		// (a bare string, number, boolean) is a format mismatch.
		if !json.Valid(data) {
			return nil, nil, errors.NewImportParse(fmt.Errorf("input is not valid JSON"))
		}
		return nil, nil, errors.NewImportFormat("input must be a card array or an export object")
	}
}
