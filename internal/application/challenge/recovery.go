package challenge

import (
	"context"

	"github.com/go-idp-security/internal/pkg/totp"
)

// RecoveryStart mails an authenticator reset code to a registered account,
// regardless of its sign-in state. An account that never finished sign-up is
// told by email to sign up again; the caller sees the same answer as for an
// unknown address.
func (s *service) RecoveryStart(ctx context.Context, rc RequestContext) (Outcome, error) {
	a, err := s.lookup(ctx, rc)
	if err != nil {
		return Outcome{}, err
	}
	switch {
	case a == nil:
		return s.done("recovery", "refused", Show(ChallengeRecoveryCode, NoticeCheckEmail)), nil
	case !a.AccountRegistered:
		s.notify(ctx, a, subjectFinishSignUp, bodyFinishSignUp)
		return s.done("recovery", "refused", Show(ChallengeRecoveryCode, NoticeCheckEmail)), nil
	case a.Blocked:
		return s.done("recovery", "refused", Show(ChallengeRecoveryCode, NoticeCheckEmail)), nil
	}
	if err := s.sendCode(ctx, a, totp.PurposeResetAuthenticator); err != nil {
		return Outcome{}, err
	}
	return s.done("recovery", "challenge", Show(ChallengeRecoveryCode, NoticeCheckEmail)), nil
}

// RecoveryVerify consumes the reset code, flags the account for re-enrolment,
// signs it out everywhere and hands out new enrolment material.
func (s *service) RecoveryVerify(ctx context.Context, rc RequestContext, code string) (Outcome, error) {
	a, err := s.lookup(ctx, rc)
	if err != nil {
		return Outcome{}, err
	}
	if a == nil || !a.AccountRegistered || a.Blocked || a.IsLockedOut(s.now()) {
		return s.done("recovery", "invalid", Show(ChallengeRecoveryCode, NoticeInvalidCode)), nil
	}
	ok, err := s.consumeCode(ctx, a, totp.PurposeResetAuthenticator, code)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		if err := s.lifecycle.RecordFailure(ctx, a); err != nil {
			return Outcome{}, err
		}
		return s.done("recovery", "invalid", Show(ChallengeRecoveryCode, NoticeInvalidCode)), nil
	}
	if err := s.lifecycle.AcknowledgeRecovery(ctx, a); err != nil {
		return Outcome{}, err
	}
	o, err := s.enrollmentChallenge(ctx, a, NoticeResetPending)
	if err != nil {
		return Outcome{}, err
	}
	return s.done("recovery", "verified", o), nil
}
