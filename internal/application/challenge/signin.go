package challenge

import (
	"context"
	"errors"

	"github.com/go-idp-security/internal/domain"
	"github.com/go-idp-security/internal/pkg/totp"
)

// SignInStart checks the sign-in prerequisites and asks for the authenticator
// code. Every refusal except a pending reset looks like the normal path; the
// owner learns the reason by email.
func (s *service) SignInStart(ctx context.Context, rc RequestContext) (Outcome, error) {
	a, err := s.lookup(ctx, rc)
	if err != nil {
		return Outcome{}, err
	}
	err = s.lifecycle.CanSignIn(ctx, a)
	if errors.Is(err, domain.ErrResetRequired) {
		return s.done("signin", "redirect", Redirect(RouteRecovery, NoticeResetPending)), nil
	}
	if err != nil {
		return s.done("signin", "refused", Show(ChallengeTOTP, "")), nil
	}
	return s.done("signin", "challenge", Show(ChallengeTOTP, "")), nil
}

// SignInVerifyTOTP checks a code from the enrolled authenticator.
func (s *service) SignInVerifyTOTP(ctx context.Context, rc RequestContext, code string) (Outcome, error) {
	a, refused, err := s.signInAccount(ctx, rc, ChallengeTOTP)
	if err != nil || refused != nil {
		return deref(refused), err
	}
	if !s.authenticator.Validate(totp.PurposeSignIn, code, a) {
		if err := s.lifecycle.RecordFailure(ctx, a); err != nil {
			return Outcome{}, err
		}
		return s.done("signin", "invalid", Show(ChallengeTOTP, NoticeInvalidCode)), nil
	}
	return s.completeSignIn(ctx, a)
}

// SignInRequestEmailCode mails a one-time sign-in code when the account allows
// the email fallback. The answer is the same whether or not a code was sent.
func (s *service) SignInRequestEmailCode(ctx context.Context, rc RequestContext) (Outcome, error) {
	a, err := s.lookup(ctx, rc)
	if err != nil {
		return Outcome{}, err
	}
	err = s.lifecycle.CheckSignIn(a)
	if errors.Is(err, domain.ErrResetRequired) {
		return s.done("signin", "redirect", Redirect(RouteRecovery, NoticeResetPending)), nil
	}
	if err != nil || !s.emailSignInAllowed(a) {
		return s.done("signin", "refused", Show(ChallengeEmailCode, NoticeCheckEmail)), nil
	}
	if err := s.sendCode(ctx, a, totp.PurposeEmailSignIn); err != nil {
		return Outcome{}, err
	}
	return s.done("signin", "challenge", Show(ChallengeEmailCode, NoticeCheckEmail)), nil
}

// SignInVerifyEmailCode checks and consumes an emailed sign-in code.
func (s *service) SignInVerifyEmailCode(ctx context.Context, rc RequestContext, code string) (Outcome, error) {
	a, refused, err := s.signInAccount(ctx, rc, ChallengeEmailCode)
	if err != nil || refused != nil {
		return deref(refused), err
	}
	if !s.emailSignInAllowed(a) {
		return s.done("signin", "invalid", Show(ChallengeEmailCode, NoticeInvalidCode)), nil
	}
	ok, err := s.consumeCode(ctx, a, totp.PurposeEmailSignIn, code)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		if err := s.lifecycle.RecordFailure(ctx, a); err != nil {
			return Outcome{}, err
		}
		return s.done("signin", "invalid", Show(ChallengeEmailCode, NoticeInvalidCode)), nil
	}
	return s.completeSignIn(ctx, a)
}

// signInAccount loads the account for a verification step. When the step must
// not proceed it returns the outcome to answer with instead.
func (s *service) signInAccount(ctx context.Context, rc RequestContext, kind ChallengeKind) (*domain.Account, *Outcome, error) {
	a, err := s.lookup(ctx, rc)
	if err != nil {
		return nil, nil, err
	}
	err = s.lifecycle.CheckSignIn(a)
	if errors.Is(err, domain.ErrResetRequired) {
		o := s.done("signin", "redirect", Redirect(RouteRecovery, NoticeResetPending))
		return nil, &o, nil
	}
	if err != nil {
		o := s.done("signin", "refused", Show(kind, NoticeInvalidCode))
		return nil, &o, nil
	}
	return a, nil, nil
}

// completeSignIn resets the failure counter, rotates the stamp, ends other
// sessions and opens a new one.
func (s *service) completeSignIn(ctx context.Context, a *domain.Account) (Outcome, error) {
	if err := s.lifecycle.RecordSuccess(ctx, a); err != nil {
		return Outcome{}, err
	}
	grant, err := s.sessions.Start(ctx, a)
	if err != nil {
		return Outcome{}, err
	}
	return s.done("signin", "success", Redirect(RouteHome, NoticeWelcome).withGrant(grant)), nil
}

func (s *service) emailSignInAllowed(a *domain.Account) bool {
	return a != nil && a.EmailChallengeEnabled && s.generic.CanIssue(a)
}

func deref(o *Outcome) Outcome {
	if o == nil {
		return Outcome{}
	}
	return *o
}
