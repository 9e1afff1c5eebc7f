package handler

import (
	"net/http"

	"github.com/go-idp-security/internal/application/challenge"
)

// SignUpHandler serves the sign-up flow and the enrolment step shared with recovery.
type SignUpHandler struct {
	svc challenge.Service
}

func NewSignUpHandler(svc challenge.Service) *SignUpHandler { return &SignUpHandler{svc: svc} }

func (h *SignUpHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := h.svc.SignUpStart(r.Context(), requestContext(r, req.Email))
	writeOutcome(w, o, err)
}

func (h *SignUpHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := h.svc.SignUpConfirmEmail(r.Context(), requestContext(r, req.Email), req.Code)
	writeOutcome(w, o, err)
}

func (h *SignUpHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := h.svc.CompleteEnrollment(r.Context(), requestContext(r, req.Email), req.Code, req.SessionCode)
	writeOutcome(w, o, err)
}
