package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-idp-security/internal/application/challenge"
)

// RecoveryHandler handles authenticator recovery endpoints.
type RecoveryHandler struct {
	svc challenge.Service
}

func NewRecoveryHandler(svc challenge.Service) *RecoveryHandler { return &RecoveryHandler{svc: svc} }

func (h *RecoveryHandler) Action(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "request":
		var req EmailRequest
		if !decode(w, r, &req) {
			return
		}
		o, err := h.svc.RecoveryStart(r.Context(), requestContext(r, req.Email))
		writeOutcome(w, o, err)
	case "validate-code":
		var req CodeRequest
		if !decode(w, r, &req) {
			return
		}
		o, err := h.svc.RecoveryVerify(r.Context(), requestContext(r, req.Email), req.Code)
		writeOutcome(w, o, err)
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
