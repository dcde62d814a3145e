package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mkrupp/taskmanager/internal/domain"
)

// MaxBodyBytes caps the size of decoded request bodies.
const MaxBodyBytes = 1 << 20

// errTrailingData is returned when a body continues after its JSON value.
var errTrailingData = errors.New("unexpected data after json value")

const internalErrorMessage = "internal server error"

// StatusCode maps an error to the HTTP status of its kind.
// Errors without a public kind map to 500.
func StatusCode(err error) int {
	de, ok := domain.PublicError(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch {
	case errors.Is(de.Kind, domain.ErrValidation), errors.Is(de.Kind, domain.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(de.Kind, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(de.Kind, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(de.Kind, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}

// WriteError writes err as a {"message": ...} body. Internal errors are reduced to
// a generic message; expose adds the internal detail under "error".
func WriteError(w http.ResponseWriter, err error, expose bool) error {
	status := StatusCode(err)
	body := domain.MessageResponse{Message: internalErrorMessage}

	if status != http.StatusInternalServerError {
		de, _ := domain.PublicError(err)
		body.Message = de.Message
	} else if expose {
		body.Error = err.Error()
	}

	return WriteJSON(w, status, body)
}

// DecodeJSON decodes a JSON request body holding exactly one value into v.
// Decoding failures, trailing data and bodies over MaxBodyBytes are reported
// as domain.ErrMalformedBody.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))

	if err := dec.Decode(v); err != nil {
		return errors.Join(domain.ErrMalformedBody, err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.Join(domain.ErrMalformedBody, errTrailingData)
	}

	return nil
}
