package challenge

import (
	"context"

	"github.com/go-idp-security/internal/pkg/totp"
)

// SignUpStart creates or reuses the account for rc.Email and mails an email
// confirmation code. Registered accounts are sent to the route that fits them.
func (s *service) SignUpStart(ctx context.Context, rc RequestContext) (Outcome, error) {
	existing, err := s.lookup(ctx, rc)
	if err != nil {
		return Outcome{}, err
	}
	if existing != nil && existing.AccountRegistered {
		if existing.RequiresAuthenticatorReset {
			return s.done("signup", "redirect", Redirect(RouteRecovery, NoticeResetPending)), nil
		}
		return s.done("signup", "redirect", Redirect(RouteSignIn, NoticeAlreadyRegistered)), nil
	}

	a, err := s.lifecycle.EnsureAccount(ctx, rc.Email)
	if err != nil {
		return Outcome{}, err
	}
	if a.Blocked {
		return s.done("signup", "refused", Show(ChallengeEmailConfirmation, NoticeCheckEmail)), nil
	}
	if err := s.sendCode(ctx, a, totp.PurposeEmailConfirmation); err != nil {
		return Outcome{}, err
	}
	return s.done("signup", "challenge", Show(ChallengeEmailConfirmation, NoticeCheckEmail)), nil
}

// SignUpConfirmEmail proves mailbox ownership and moves straight on to
// authenticator enrolment.
func (s *service) SignUpConfirmEmail(ctx context.Context, rc RequestContext, code string) (Outcome, error) {
	a, err := s.lookup(ctx, rc)
	if err != nil {
		return Outcome{}, err
	}
	if a == nil || a.AccountRegistered || a.Blocked {
		return s.done("signup", "invalid", Show(ChallengeEmailConfirmation, NoticeInvalidCode)), nil
	}
	ok, err := s.consumeCode(ctx, a, totp.PurposeEmailConfirmation, code)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return s.done("signup", "invalid", Show(ChallengeEmailConfirmation, NoticeInvalidCode)), nil
	}
	if err := s.lifecycle.ConfirmEmail(ctx, a); err != nil {
		return Outcome{}, err
	}
	o, err := s.enrollmentChallenge(ctx, a, "")
	if err != nil {
		return Outcome{}, err
	}
	return s.done("signup", "confirmed", o), nil
}
