package http

import (
	"errors"
	"net/http"

	"github.com/havenward/sanctum/internal/repository"
	"github.com/havenward/sanctum/internal/service"
)

// statusForError maps service errors onto HTTP status codes. Anything
// unmapped is a 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrInvitationNotFound),
		errors.Is(err, service.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrCapacityExceeded):
		return http.StatusConflict
	case errors.Is(err, service.ErrSessionExpired):
		return http.StatusGone
	case errors.Is(err, service.ErrConsentRequired):
		return http.StatusPreconditionRequired
	default:
		return http.StatusInternalServerError
	}
}
