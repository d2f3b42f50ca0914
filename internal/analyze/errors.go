package analyze

import (
	"errors"
	"fmt"

	"densiview/internal/domain"
)

// Validation failures are hard preconditions: they reject the submission
// before any network call and never fall back to mock.
var (
	ErrNoFile          = errors.New("no file provided")
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file exceeds maximum size")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// IsValidationError reports whether err is one of the precondition failures
// that must be surfaced to the user instead of producing a mock result.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNoFile) ||
		errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrUnsupportedType)
}

// ConnectivityError wraps a transport-level submission failure with its
// classification. Always recoverable: the caller falls back to mock.
type ConnectivityError struct {
	Class domain.FailureClass
	Err   error
}

// Error formats the classified failure.
func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// ServerError is a reachable backend declining the request: an error status
// or a JSON body instead of a report. The server's message is preserved for
// diagnostics. Always recoverable: the caller falls back to mock.
type ServerError struct {
	Status  int
	Message string
}

// Error formats the server failure.
func (e *ServerError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("server error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server error: %s", e.Message)
}
