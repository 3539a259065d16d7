// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound    = errors.New("resource not found")
	ErrValidation  = errors.New("validation failed")
	ErrUnavailable = errors.New("service unavailable")
)

// RespondError maps domain errors to HTTP responses. Validation and lookup
// failures carry their message; anything else is reported generically unless
// expose is set, which non-production builds use to surface the detail.
func RespondError(w http.ResponseWriter, err error, expose bool) {
	switch {
	case errors.Is(err, ErrValidation):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnavailable):
		Error(w, http.StatusServiceUnavailable, err.Error())
	default:
		msg := "internal server error"
		if expose && err != nil {
			msg = msg + ": " + err.Error()
		}
		Error(w, http.StatusInternalServerError, msg)
	}
}
