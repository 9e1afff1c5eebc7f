package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-idp-security/internal/domain"
)

// httpError maps domain sentinels to status codes. Anything unrecognised is
// logged and reported as a bare 500.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidStateChange):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrResendBlocked):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrResendCooldown), errors.Is(err, domain.ErrTooManyRequests):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
