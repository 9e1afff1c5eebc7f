package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-idp-security/internal/application/challenge"
	"github.com/go-idp-security/internal/pkg/validate"
	"github.com/go-idp-security/internal/transport/http/middleware"
)

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type CodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,numeric,len=6"`
}

type EnrollRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,numeric,len=6"`
	SessionCode string `json:"session_code" validate:"required,numeric,len=6"`
}

type PurposeRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,oneof=EmailConfirmation EmailSignIn ResetAuthenticator"`
}

type StepUpRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}

// decode reads a JSON body into v and validates it, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// requestContext identifies the caller of an anonymous flow step.
func requestContext(r *http.Request, email string) challenge.RequestContext {
	rc := challenge.RequestContext{Email: email, RemoteAddr: middleware.RealIP(r)}
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		rc.AccountID = claims.AccountID
		rc.SessionID = claims.SessionID
	}
	return rc
}
