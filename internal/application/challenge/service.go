// Package challenge drives the sign-up, sign-in and recovery flows. Each
// operation picks the next proof the user owes or the route to leave for.
// Wrong codes and policy refusals become Outcomes; only storage and delivery
// failures are returned as errors.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-idp-security/internal/application/delivery"
	"github.com/go-idp-security/internal/application/lifecycle"
	"github.com/go-idp-security/internal/application/session"
	"github.com/go-idp-security/internal/domain"
	"github.com/go-idp-security/internal/infrastructure/smtp"
	"github.com/go-idp-security/internal/pkg/metrics"
	"github.com/go-idp-security/internal/pkg/totp"
)

type Service interface {
	SignUpStart(ctx context.Context, rc RequestContext) (Outcome, error)
	SignUpConfirmEmail(ctx context.Context, rc RequestContext, code string) (Outcome, error)
	CompleteEnrollment(ctx context.Context, rc RequestContext, totpCode, sessionCode string) (Outcome, error)

	SignInStart(ctx context.Context, rc RequestContext) (Outcome, error)
	SignInVerifyTOTP(ctx context.Context, rc RequestContext, code string) (Outcome, error)
	SignInRequestEmailCode(ctx context.Context, rc RequestContext) (Outcome, error)
	SignInVerifyEmailCode(ctx context.Context, rc RequestContext, code string) (Outcome, error)

	RecoveryStart(ctx context.Context, rc RequestContext) (Outcome, error)
	RecoveryVerify(ctx context.Context, rc RequestContext, code string) (Outcome, error)

	ResendCode(ctx context.Context, rc RequestContext, purpose string) error
	CancelCode(ctx context.Context, rc RequestContext, purpose string) error
}

type ServiceDeps struct {
	Lifecycle     lifecycle.Service
	Deliveries    delivery.Service
	Sessions      session.Service
	Generic       totp.TokenProvider
	Authenticator totp.TokenProvider
	Mailer        smtp.Mailer
	Issuer        string
	Now           func() time.Time
}

type service struct {
	lifecycle     lifecycle.Service
	deliveries    delivery.Service
	sessions      session.Service
	generic       totp.TokenProvider
	authenticator totp.TokenProvider
	mailer        smtp.Mailer
	issuer        string
	now           func() time.Time
}

func NewService(deps ServiceDeps) Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{
		lifecycle:     deps.Lifecycle,
		deliveries:    deps.Deliveries,
		sessions:      deps.Sessions,
		generic:       deps.Generic,
		authenticator: deps.Authenticator,
		mailer:        deps.Mailer,
		issuer:        deps.Issuer,
		now:           deps.Now,
	}
}

// lookup resolves the account addressed by rc. A missing account is (nil, nil).
func (s *service) lookup(ctx context.Context, rc RequestContext) (*domain.Account, error) {
	var (
		a   *domain.Account
		err error
	)
	switch {
	case rc.AccountID != "":
		a, err = s.lifecycle.Get(ctx, rc.AccountID)
	case rc.Email != "":
		a, err = s.lifecycle.FindByEmail(ctx, rc.Email)
	default:
		return nil, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return a, err
}

// sendCode generates a purpose code from the account's stamp and emails it.
func (s *service) sendCode(ctx context.Context, a *domain.Account, purpose string) error {
	code, err := s.generic.Generate(purpose, a)
	if err != nil {
		return fmt.Errorf("generate %s code: %w", purpose, err)
	}
	subject, body := codeMessage(purpose, code)
	_, err = s.deliveries.Dispatch(ctx, a, purpose, subject, body)
	return err
}

// notify emails a code-less notice. The caller's answer must not depend on the
// send, so failures are only logged.
func (s *service) notify(ctx context.Context, a *domain.Account, subject, body string) {
	if err := s.mailer.SendEmail(ctx, a.Email, subject, body); err != nil {
		slog.Warn("notice email failed", "account_id", a.AccountID, "subject", subject, "err", err)
	}
}

// consumeCode validates an emailed code and archives its delivery record.
// A valid code whose record is already spent counts as invalid.
func (s *service) consumeCode(ctx context.Context, a *domain.Account, purpose, code string) (bool, error) {
	if !s.generic.Validate(purpose, code, a) {
		return false, nil
	}
	if err := s.deliveries.Consume(ctx, a.AccountID, purpose); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// enrollmentChallenge stages a fresh authenticator and returns the material
// the user needs to finish enrolment.
func (s *service) enrollmentChallenge(ctx context.Context, a *domain.Account, notice string) (Outcome, error) {
	key, err := totp.NewAuthenticatorKey(s.issuer, a.Email)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.lifecycle.BeginEnrollment(ctx, a, key.Secret); err != nil {
		return Outcome{}, err
	}
	if !s.generic.CanIssue(a) {
		return Outcome{}, fmt.Errorf("session code for unconfirmed account: %w", domain.ErrInvalidStateChange)
	}
	sessionCode, err := s.generic.Generate(totp.PurposeSessionVerify, a)
	if err != nil {
		return Outcome{}, err
	}
	return Show(ChallengeEnrollment, notice).withEnrollment(&EnrollmentMaterial{
		Secret:      key.Secret,
		URI:         key.URI,
		SessionCode: sessionCode,
	}), nil
}

// CompleteEnrollment is the last step of both sign-up and recovery.
func (s *service) CompleteEnrollment(ctx context.Context, rc RequestContext, totpCode, sessionCode string) (Outcome, error) {
	a, err := s.lookup(ctx, rc)
	if err != nil {
		return Outcome{}, err
	}
	if a == nil || !a.CanEnroll() || a.PendingAuthenticatorKey == "" || a.Blocked {
		return s.done("enroll", "invalid", Show(ChallengeEnrollment, NoticeInvalidCode)), nil
	}
	candidate := *a
	candidate.AuthenticatorKey = a.PendingAuthenticatorKey
	if !s.authenticator.Validate(totp.PurposeEnroll, totpCode, &candidate) ||
		!s.generic.Validate(totp.PurposeSessionVerify, sessionCode, a) {
		return s.done("enroll", "invalid", Show(ChallengeEnrollment, NoticeInvalidCode)), nil
	}
	if err := s.lifecycle.CompleteEnrollment(ctx, a); err != nil {
		return Outcome{}, err
	}
	grant, err := s.sessions.Start(ctx, a)
	if err != nil {
		return Outcome{}, err
	}
	return s.done("enroll", "success", Redirect(RouteHome, NoticeWelcome).withGrant(grant)), nil
}

// ResendCode re-sends the latest email code for purpose with a freshly
// generated code. Unknown accounts and missing records read as blocked.
func (s *service) ResendCode(ctx context.Context, rc RequestContext, purpose string) error {
	if !emailPurposes[purpose] {
		return fmt.Errorf("unknown purpose %q: %w", purpose, domain.ErrBadRequest)
	}
	a, err := s.lookup(ctx, rc)
	if err != nil {
		return err
	}
	if a == nil {
		return domain.ErrResendBlocked
	}
	if purpose == totp.PurposeEmailSignIn && !s.emailSignInAllowed(a) {
		return domain.ErrResendBlocked
	}
	rec, err := s.deliveries.Latest(ctx, a.AccountID, purpose)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrResendBlocked
	}
	if err != nil {
		return err
	}
	code, err := s.generic.Generate(purpose, a)
	if err != nil {
		return err
	}
	subject, body := codeMessage(purpose, code)
	_, err = s.deliveries.Resend(ctx, rec.DeliveryID, subject, body)
	return err
}

func (s *service) CancelCode(ctx context.Context, rc RequestContext, purpose string) error {
	if !emailPurposes[purpose] {
		return fmt.Errorf("unknown purpose %q: %w", purpose, domain.ErrBadRequest)
	}
	a, err := s.lookup(ctx, rc)
	if err != nil {
		return err
	}
	if a == nil {
		return domain.ErrResendBlocked
	}
	rec, err := s.deliveries.Latest(ctx, a.AccountID, purpose)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrResendBlocked
	}
	if err != nil {
		return err
	}
	_, err = s.deliveries.Cancel(ctx, rec.DeliveryID)
	return err
}

// done counts the outcome and passes it through.
func (s *service) done(flow, result string, o Outcome) Outcome {
	metrics.ChallengeOutcomes.WithLabelValues(flow, result).Inc()
	return o
}
