// Package apperr centralizes the error kinds surfaced across the matching,
// assignment, trip, and payment pipeline, and the HTTP status they map to.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound is returned when a ride, trip, payment, or assignment
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCannotAccept is returned when an accept request targets an
	// assignment that is not currently Offered, or is owned by another
	// driver. Not treated as a server error — the client simply lost a
	// race.
	ErrCannotAccept = errors.New("cannot accept assignment")

	// ErrIllegalState is returned when an operation is attempted against
	// an entity that is not in the state it requires (e.g. ending a trip
	// that is not Ongoing).
	ErrIllegalState = errors.New("illegal state for operation")

	// ErrValidationFailed is returned for malformed request input:
	// invalid coordinates, empty identifiers.
	ErrValidationFailed = errors.New("validation failed")

	// ErrBackendUnavailable is returned when the Store or GeoIndex cannot
	// be reached. Callers decide locally whether to degrade (Matcher
	// returns None) or propagate (Store write failures become 5xx).
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// ToHTTPStatus maps an apperr sentinel to the HTTP status code the handler
// layer should respond with. Unrecognized errors default to 500.
func ToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrCannotAccept), errors.Is(err, ErrIllegalState):
		return http.StatusBadRequest
	case errors.Is(err, ErrValidationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
