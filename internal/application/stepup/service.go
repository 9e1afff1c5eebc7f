// Package stepup grants a short-lived elevated authorization to a session after
// a fresh authenticator code.
package stepup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-idp-security/internal/domain"
	"github.com/go-idp-security/internal/pkg/metrics"
	"github.com/go-idp-security/internal/pkg/totp"
)

type ClaimStore interface {
	Put(ctx context.Context, claim *domain.StepUpClaim, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*domain.StepUpClaim, error)
}

type AccountGetter interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
}

type Service interface {
	Challenge(ctx context.Context, accountID, sessionID, code string) (*domain.StepUpClaim, error)
	Issue(ctx context.Context, account *domain.Account, sessionID string) (*domain.StepUpClaim, error)
	IsAuthorized(ctx context.Context, sessionID string) bool
}

type service struct {
	claims        ClaimStore
	accounts      AccountGetter
	authenticator totp.TokenProvider
	duration      time.Duration
	now           func() time.Time
}

func NewService(claims ClaimStore, accounts AccountGetter, authenticator totp.TokenProvider, duration time.Duration, now func() time.Time) Service {
	if now == nil {
		now = time.Now
	}
	return &service{
		claims:        claims,
		accounts:      accounts,
		authenticator: authenticator,
		duration:      duration,
		now:           now,
	}
}

// Challenge checks a live authenticator code and issues a claim on success.
// Failures do not count towards lockout.
func (s *service) Challenge(ctx context.Context, accountID, sessionID, code string) (*domain.StepUpClaim, error) {
	a, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if a.Blocked || !a.AccountRegistered || a.RequiresAuthenticatorReset {
		metrics.ChallengeOutcomes.WithLabelValues("stepup", "refused").Inc()
		return nil, fmt.Errorf("step-up not available: %w", domain.ErrForbidden)
	}
	if !s.authenticator.Validate(totp.PurposeStepUp, code, a) {
		metrics.ChallengeOutcomes.WithLabelValues("stepup", "invalid").Inc()
		return nil, fmt.Errorf("invalid code: %w", domain.ErrUnauthorized)
	}
	metrics.ChallengeOutcomes.WithLabelValues("stepup", "success").Inc()
	return s.Issue(ctx, a, sessionID)
}

// Issue replaces any claim on the session with one valid for the configured duration.
func (s *service) Issue(ctx context.Context, account *domain.Account, sessionID string) (*domain.StepUpClaim, error) {
	claim := &domain.StepUpClaim{
		SessionID: sessionID,
		AccountID: account.AccountID,
		ExpiresAt: s.now().UTC().Add(s.duration),
	}
	if err := s.claims.Put(ctx, claim, s.duration); err != nil {
		return nil, err
	}
	return claim, nil
}

// IsAuthorized compares the stored expiry with now. A missing claim or a store
// error both read as unauthorized.
func (s *service) IsAuthorized(ctx context.Context, sessionID string) bool {
	claim, err := s.claims.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("step-up lookup failed", "session_id", sessionID, "err", err)
		}
		return false
	}
	return claim.Valid(s.now())
}
