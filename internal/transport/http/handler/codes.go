package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-idp-security/internal/application/challenge"
)

// CodeHandler resends or cancels the latest emailed code for a purpose.
type CodeHandler struct {
	svc challenge.Service
}

func NewCodeHandler(svc challenge.Service) *CodeHandler { return &CodeHandler{svc: svc} }

func (h *CodeHandler) Action(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	if action != "resend" && action != "cancel" {
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}
	var req PurposeRequest
	if !decode(w, r, &req) {
		return
	}
	rc := requestContext(r, req.Email)
	if action == "resend" {
		if err := h.svc.ResendCode(r.Context(), rc, req.Purpose); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "code sent"})
		return
	}
	if err := h.svc.CancelCode(r.Context(), rc, req.Purpose); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "code cancelled"})
}
