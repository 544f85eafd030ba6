package errors

import "fmt"

// ErrorCode represents a flashdeck error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrImportFormat   ErrorCode = "IMPORT_FORMAT"   // 400
	ErrImportParse    ErrorCode = "IMPORT_PARSE"    // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"  // 404
	ErrNoCard         ErrorCode = "NO_CARD"         // 404
	ErrNoDataset      ErrorCode = "NO_DATASET"      // 409
	ErrLoadFailed     ErrorCode = "LOAD_FAILED"     // 502
	ErrPersistence    ErrorCode = "PERSISTENCE"     // 500
	ErrCancelled      ErrorCode = "CANCELLED"       // 499
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// DeckError represents a structured error with code, status, and details.
type DeckError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *DeckError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *DeckError {
	return &DeckError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewImportFormat creates a 400 error for an unrecognized import shape.
// The previous card store and label store are left unchanged by the caller.
func NewImportFormat(msg string) *DeckError {
	return &DeckError{
		Code:    ErrImportFormat,
		Status:  400,
		Message: msg,
	}
}

// NewImportParse creates a 400 error for import input that is not valid JSON.
func NewImportParse(err error) *DeckError {
	return &DeckError{
		Code:    ErrImportParse,
		Status:  400,
		Message: fmt.Sprintf("import input is not valid JSON: %v", err),
	}
}

// NewNotFound creates a 404 error for when a card cannot be found.
func NewNotFound(id string) *DeckError {
	return &DeckError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("card not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewFileNotFound creates a 404 error for a missing file path.
func NewFileNotFound(path string) *DeckError {
	return &DeckError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewNoCard creates a 404 error for navigation on an empty order.
// Not fatal: the deck becomes navigable again once a non-empty order is set.
func NewNoCard() *DeckError {
	return &DeckError{
		Code:    ErrNoCard,
		Status:  404,
		Message: "no card: the current order is empty",
	}
}

// NewNoDataset creates a 409 error for operations that require a loaded dataset.
func NewNoDataset() *DeckError {
	return &DeckError{
		Code:    ErrNoDataset,
		Status:  409,
		Message: "no dataset loaded; load or import a dataset first",
	}
}

// NewLoadFailed creates a 502 error for dataset fetch/parse failures.
func NewLoadFailed(source string, err error) *DeckError {
	return &DeckError{
		Code:    ErrLoadFailed,
		Status:  502,
		Message: fmt.Sprintf("failed to load dataset from %s: %v", source, err),
		Details: map[string]any{"source": source},
	}
}

// NewPersistence creates a 500 error for label store write failures.
// Label writes are best-effort: callers report this without aborting navigation.
func NewPersistence(err error) *DeckError {
	return &DeckError{
		Code:    ErrPersistence,
		Status:  500,
		Message: fmt.Sprintf("failed to persist labels: %v", err),
	}
}

// NewCancelled creates a 499 error for operations interrupted by context cancellation.
func NewCancelled(operation string) *DeckError {
	return &DeckError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *DeckError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &DeckError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a DeckError with the given code.
func Is(err error, code ErrorCode) bool {
	if dErr, ok := err.(*DeckError); ok {
		return dErr.Code == code
	}
	return false
}
