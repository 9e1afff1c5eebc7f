package handler

import (
	"net/http"

	"github.com/go-idp-security/internal/application/stepup"
	"github.com/go-idp-security/internal/transport/http/middleware"
)

// StepUpHandler lets a signed-in session re-prove possession of its authenticator.
type StepUpHandler struct {
	svc stepup.Service
}

func NewStepUpHandler(svc stepup.Service) *StepUpHandler { return &StepUpHandler{svc: svc} }

func (h *StepUpHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req StepUpRequest
	if !decode(w, r, &req) {
		return
	}
	claim, err := h.svc.Challenge(r.Context(), claims.AccountID, claims.SessionID, req.Code)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StepUpEnvelope{Authorized: true, ExpiresAt: &claim.ExpiresAt})
}

func (h *StepUpHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, StepUpEnvelope{Authorized: h.svc.IsAuthorized(r.Context(), claims.SessionID)})
}
