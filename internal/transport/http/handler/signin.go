package handler

import (
	"net/http"

	"github.com/go-idp-security/internal/application/challenge"
)

type SignInHandler struct {
	svc challenge.Service
}

func NewSignInHandler(svc challenge.Service) *SignInHandler { return &SignInHandler{svc: svc} }

func (h *SignInHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := h.svc.SignInStart(r.Context(), requestContext(r, req.Email))
	writeOutcome(w, o, err)
}

func (h *SignInHandler) VerifyTOTP(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := h.svc.SignInVerifyTOTP(r.Context(), requestContext(r, req.Email), req.Code)
	writeOutcome(w, o, err)
}

func (h *SignInHandler) RequestEmailCode(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := h.svc.SignInRequestEmailCode(r.Context(), requestContext(r, req.Email))
	writeOutcome(w, o, err)
}

func (h *SignInHandler) VerifyEmailCode(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := h.svc.SignInVerifyEmailCode(r.Context(), requestContext(r, req.Email), req.Code)
	writeOutcome(w, o, err)
}
