package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-idp-security/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStepUpChallenge_Unauthenticated(t *testing.T) {
	rr := httptest.NewRecorder()
	NewStepUpHandler(&mockStepUp{}).Challenge(rr, jsonReq(t, http.MethodPost, "/v1/step-up", StepUpRequest{Code: "123456"}))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestStepUpChallenge_WrongCode(t *testing.T) {
	svc := &mockStepUp{}
	svc.On("Challenge", mock.Anything, "acc-1", "sess-1", "123456").
		Return(nil, fmt.Errorf("invalid code: %w", domain.ErrUnauthorized))

	rr := httptest.NewRecorder()
	r := withClaims(jsonReq(t, http.MethodPost, "/v1/step-up", StepUpRequest{Code: "123456"}), "acc-1", "sess-1")
	NewStepUpHandler(svc).Challenge(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestStepUpChallenge_Refused(t *testing.T) {
	svc := &mockStepUp{}
	svc.On("Challenge", mock.Anything, "acc-1", "sess-1", "123456").
		Return(nil, fmt.Errorf("step-up not available: %w", domain.ErrForbidden))

	rr := httptest.NewRecorder()
	r := withClaims(jsonReq(t, http.MethodPost, "/v1/step-up", StepUpRequest{Code: "123456"}), "acc-1", "sess-1")
	NewStepUpHandler(svc).Challenge(rr, r)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestStepUpChallenge_Success(t *testing.T) {
	expires := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)
	svc := &mockStepUp{}
	svc.On("Challenge", mock.Anything, "acc-1", "sess-1", "123456").
		Return(&domain.StepUpClaim{SessionID: "sess-1", AccountID: "acc-1", ExpiresAt: expires}, nil)

	rr := httptest.NewRecorder()
	r := withClaims(jsonReq(t, http.MethodPost, "/v1/step-up", StepUpRequest{Code: "123456"}), "acc-1", "sess-1")
	NewStepUpHandler(svc).Challenge(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var env StepUpEnvelope
	decodeBody(t, rr, &env)
	assert.True(t, env.Authorized)
	require.NotNil(t, env.ExpiresAt)
	assert.True(t, expires.Equal(*env.ExpiresAt))
}

func TestStepUpStatus(t *testing.T) {
	svc := &mockStepUp{}
	svc.On("IsAuthorized", mock.Anything, "sess-1").Return(false)

	rr := httptest.NewRecorder()
	r := withClaims(httptest.NewRequest(http.MethodGet, "/v1/step-up", nil), "acc-1", "sess-1")
	NewStepUpHandler(svc).Status(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"authorized":false}`, rr.Body.String())
}
