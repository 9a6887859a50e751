// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/udms-pro/udms/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	status, title := StatusFor(err)
	detail := ""
	if status != http.StatusInternalServerError {
		detail = err.Error()
	}
	Problem(w, status, title, detail)
}

// StatusFor returns the HTTP status and problem title for a domain error.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrUnauthenticated), errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, shared.ErrPermissionDenied):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, shared.ErrLockedOut):
		return http.StatusLocked, "Locked Out"
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, shared.ErrCapacityExceeded):
		return http.StatusConflict, "Capacity Exceeded"
	case errors.Is(err, shared.ErrAlreadySettled):
		return http.StatusConflict, "Already Settled"
	case errors.Is(err, shared.ErrInvalidTransition):
		return http.StatusConflict, "Invalid Transition"
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest, "Validation Failed"
	case errors.Is(err, shared.ErrCollaboratorUnavailable):
		return http.StatusServiceUnavailable, "Collaborator Unavailable"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}
