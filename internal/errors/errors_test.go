package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestDeckError_Error(t *testing.T) {
	err := NewInvalidRequest("bad filter")
	if got := err.Error(); got != "INVALID_REQUEST: bad filter" {
		t.Errorf("Error() = %q, want %q", got, "INVALID_REQUEST: bad filter")
	}
}

func TestIs_MatchingCode(t *testing.T) {
	err := NewImportFormat("unrecognized top-level shape")
	if !Is(err, ErrImportFormat) {
		t.Error("Is(err, ErrImportFormat) = false, want true")
	}
	if Is(err, ErrImportParse) {
		t.Error("Is(err, ErrImportParse) = true, want false")
	}
}

func TestIs_NonDeckError(t *testing.T) {
	err := stderrors.New("plain error")
	if Is(err, ErrInternal) {
		t.Error("Is should return false for non-DeckError errors")
	}
}

func TestIs_NilError(t *testing.T) {
	if Is(nil, ErrInternal) {
		t.Error("Is(nil, ...) = true, want false")
	}
}

func TestNewNotFound_Details(t *testing.T) {
	err := NewNotFound("rt-0001")
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["id"] != "rt-0001" {
		t.Errorf("Details[id] = %v, want rt-0001", err.Details["id"])
	}
}

func TestNewLoadFailed_IncludesSource(t *testing.T) {
	err := NewLoadFailed("cards.json", stderrors.New("no such file"))
	if !strings.Contains(err.Message, "cards.json") {
		t.Errorf("Message = %q, want it to mention the source", err.Message)
	}
	if err.Details["source"] != "cards.json" {
		t.Errorf("Details[source] = %v, want cards.json", err.Details["source"])
	}
}

func TestNewInternal_NilError(t *testing.T) {
	err := NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}
