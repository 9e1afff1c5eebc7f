package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-idp-security/internal/application/challenge"
	"github.com/go-idp-security/internal/application/fanout"
	"github.com/go-idp-security/internal/domain"
	jwtinfra "github.com/go-idp-security/internal/infrastructure/jwt"
	"github.com/go-idp-security/internal/transport/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockChallenge struct{ mock.Mock }

func (m *mockChallenge) outcome(args mock.Arguments) (challenge.Outcome, error) {
	o, _ := args.Get(0).(challenge.Outcome)
	return o, args.Error(1)
}

func (m *mockChallenge) SignUpStart(ctx context.Context, rc challenge.RequestContext) (challenge.Outcome, error) {
	return m.outcome(m.Called(ctx, rc))
}

func (m *mockChallenge) SignUpConfirmEmail(ctx context.Context, rc challenge.RequestContext, code string) (challenge.Outcome, error) {
	return m.outcome(m.Called(ctx, rc, code))
}

func (m *mockChallenge) CompleteEnrollment(ctx context.Context, rc challenge.RequestContext, totpCode, sessionCode string) (challenge.Outcome, error) {
	return m.outcome(m.Called(ctx, rc, totpCode, sessionCode))
}

func (m *mockChallenge) SignInStart(ctx context.Context, rc challenge.RequestContext) (challenge.Outcome, error) {
	return m.outcome(m.Called(ctx, rc))
}

func (m *mockChallenge) SignInVerifyTOTP(ctx context.Context, rc challenge.RequestContext, code string) (challenge.Outcome, error) {
	return m.outcome(m.Called(ctx, rc, code))
}

func (m *mockChallenge) SignInRequestEmailCode(ctx context.Context, rc challenge.RequestContext) (challenge.Outcome, error) {
	return m.outcome(m.Called(ctx, rc))
}

func (m *mockChallenge) SignInVerifyEmailCode(ctx context.Context, rc challenge.RequestContext, code string) (challenge.Outcome, error) {
	return m.outcome(m.Called(ctx, rc, code))
}

func (m *mockChallenge) RecoveryStart(ctx context.Context, rc challenge.RequestContext) (challenge.Outcome, error) {
	return m.outcome(m.Called(ctx, rc))
}

func (m *mockChallenge) RecoveryVerify(ctx context.Context, rc challenge.RequestContext, code string) (challenge.Outcome, error) {
	return m.outcome(m.Called(ctx, rc, code))
}

func (m *mockChallenge) ResendCode(ctx context.Context, rc challenge.RequestContext, purpose string) error {
	return m.Called(ctx, rc, purpose).Error(0)
}

func (m *mockChallenge) CancelCode(ctx context.Context, rc challenge.RequestContext, purpose string) error {
	return m.Called(ctx, rc, purpose).Error(0)
}

type mockLifecycle struct{ mock.Mock }

func (m *mockLifecycle) account(args mock.Arguments) (*domain.Account, error) {
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLifecycle) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	return m.account(m.Called(ctx, accountID))
}

func (m *mockLifecycle) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return m.account(m.Called(ctx, email))
}

func (m *mockLifecycle) EnsureAccount(ctx context.Context, email string) (*domain.Account, error) {
	return m.account(m.Called(ctx, email))
}

func (m *mockLifecycle) ConfirmEmail(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockLifecycle) BeginEnrollment(ctx context.Context, a *domain.Account, key string) error {
	return m.Called(ctx, a, key).Error(0)
}

func (m *mockLifecycle) CompleteEnrollment(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockLifecycle) CheckSignIn(a *domain.Account) error { return m.Called(a).Error(0) }

func (m *mockLifecycle) CanSignIn(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockLifecycle) RecordFailure(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockLifecycle) RecordSuccess(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockLifecycle) AcknowledgeRecovery(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockLifecycle) RotateStamp(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockLifecycle) Block(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

func (m *mockLifecycle) Unblock(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

func (m *mockLifecycle) Delete(ctx context.Context, accountID string) (fanout.Result, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(fanout.Result), args.Error(1)
}

type mockFanout struct{ mock.Mock }

func (m *mockFanout) BroadcastLogout(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockFanout) BroadcastDelete(ctx context.Context, a *domain.Account) (fanout.Result, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(fanout.Result), args.Error(1)
}

func (m *mockFanout) DeletionReport(ctx context.Context, accountID string) (*fanout.Report, error) {
	args := m.Called(ctx, accountID)
	if r, _ := args.Get(0).(*fanout.Report); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockStepUp struct{ mock.Mock }

func (m *mockStepUp) Challenge(ctx context.Context, accountID, sessionID, code string) (*domain.StepUpClaim, error) {
	args := m.Called(ctx, accountID, sessionID, code)
	if c, _ := args.Get(0).(*domain.StepUpClaim); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStepUp) Issue(ctx context.Context, a *domain.Account, sessionID string) (*domain.StepUpClaim, error) {
	args := m.Called(ctx, a, sessionID)
	c, _ := args.Get(0).(*domain.StepUpClaim)
	return c, args.Error(1)
}

func (m *mockStepUp) IsAuthorized(ctx context.Context, sessionID string) bool {
	return m.Called(ctx, sessionID).Bool(0)
}

// --- helpers ---

func jsonReq(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return httptest.NewRequest(method, target, bytes.NewReader(raw))
}

// withChiParam injects a chi URL param into the request context.
func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func withClaims(r *http.Request, accountID, sessionID string) *http.Request {
	claims := &jwtinfra.Claims{AccountID: accountID, SessionID: sessionID, Role: domain.RoleUser}
	return r.WithContext(middleware.WithClaims(r.Context(), claims))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v))
}
