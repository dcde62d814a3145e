package domain

import "errors"

// Error kinds. Every user-facing failure wraps exactly one of them so the
// transport layer can pick a status code without knowing the concrete error.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
)

// Error is a failure whose message is safe to show to API callers.
type Error struct {
	Kind    error
	Message string
}

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the kind, so errors.Is(err, ErrConflict) holds for every conflict.
func (e *Error) Unwrap() error {
	return e.Kind
}

// ErrMalformedBody is returned when a request body cannot be decoded.
var ErrMalformedBody = newError(ErrValidation, "malformed request body")

// PublicError extracts the user-safe error from an error chain.
// Returns false if err carries no *Error.
func PublicError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}

	return nil, false
}
