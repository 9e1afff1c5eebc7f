// Package lifecycle applies the account state transitions: confirmation,
// enrolment, sign-in policy, lockout, recovery, block and deletion.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-idp-security/internal/application/fanout"
	"github.com/go-idp-security/internal/domain"
	"github.com/go-idp-security/internal/infrastructure/smtp"
	"github.com/go-idp-security/internal/pkg/id"
	"github.com/go-idp-security/internal/pkg/metrics"
	"github.com/go-idp-security/internal/pkg/token"
)

type AccountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Put(ctx context.Context, a *domain.Account) error
	SoftDelete(ctx context.Context, accountID string) error
}

type SessionRevoker interface {
	SoftDeleteByAccount(ctx context.Context, accountID string) error
}

type Broadcaster interface {
	BroadcastLogout(ctx context.Context, account *domain.Account) error
	BroadcastDelete(ctx context.Context, account *domain.Account) (fanout.Result, error)
}

type Options struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	Now              func() time.Time
}

type Service interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	EnsureAccount(ctx context.Context, email string) (*domain.Account, error)
	ConfirmEmail(ctx context.Context, account *domain.Account) error
	BeginEnrollment(ctx context.Context, account *domain.Account, authenticatorKey string) error
	CompleteEnrollment(ctx context.Context, account *domain.Account) error
	CheckSignIn(account *domain.Account) error
	CanSignIn(ctx context.Context, account *domain.Account) error
	RecordFailure(ctx context.Context, account *domain.Account) error
	RecordSuccess(ctx context.Context, account *domain.Account) error
	AcknowledgeRecovery(ctx context.Context, account *domain.Account) error
	RotateStamp(ctx context.Context, account *domain.Account) error
	Block(ctx context.Context, accountID string) error
	Unblock(ctx context.Context, accountID string) error
	Delete(ctx context.Context, accountID string) (fanout.Result, error)
}

type service struct {
	accounts AccountStore
	sessions SessionRevoker
	mailer   smtp.Mailer
	fanout   Broadcaster
	opts     Options
}

func NewService(accounts AccountStore, sessions SessionRevoker, mailer smtp.Mailer, broadcaster Broadcaster, opts Options) Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LockoutThreshold <= 0 {
		opts.LockoutThreshold = 3
	}
	return &service{
		accounts: accounts,
		sessions: sessions,
		mailer:   mailer,
		fanout:   broadcaster,
		opts:     opts,
	}
}

func (s *service) now() time.Time { return s.opts.Now().UTC() }

// Get returns a live account; soft-deleted ones read as missing.
func (s *service) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	a, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if a.DeletedAt != nil {
		return nil, fmt.Errorf("account %s deleted: %w", accountID, domain.ErrNotFound)
	}
	return a, nil
}

func (s *service) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.accounts.GetByEmail(ctx, email)
}

// EnsureAccount returns the account for email, creating an unconfirmed one if
// none exists. An account that never finished registration has its email
// confirmation revoked so ownership of the mailbox is proven again.
func (s *service) EnsureAccount(ctx context.Context, email string) (*domain.Account, error) {
	a, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !a.AccountRegistered && a.EmailConfirmed {
			a.EmailConfirmed = false
			if err := s.accounts.Put(ctx, a); err != nil {
				return nil, fmt.Errorf("reset email confirmation: %w", err)
			}
		}
		return a, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	stamp, err := token.NewSecurityStamp()
	if err != nil {
		return nil, err
	}
	now := s.now()
	a = &domain.Account{
		AccountID:             id.New(),
		Email:                 strings.ToLower(strings.TrimSpace(email)),
		EmailChallengeEnabled: true,
		Role:                  domain.RoleUser,
		SecurityStamp:         stamp,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.accounts.Put(ctx, a); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	slog.Info("account created", "account_id", a.AccountID)
	return a, nil
}

func (s *service) ConfirmEmail(ctx context.Context, account *domain.Account) error {
	if account.AccountRegistered {
		return fmt.Errorf("confirm email on registered account: %w", domain.ErrInvalidStateChange)
	}
	account.EmailConfirmed = true
	return s.accounts.Put(ctx, account)
}

// BeginEnrollment stages a newly generated authenticator key. Any previously
// staged key is discarded.
func (s *service) BeginEnrollment(ctx context.Context, account *domain.Account, authenticatorKey string) error {
	if !account.CanEnroll() {
		return fmt.Errorf("enroll from state %s: %w", account.State(), domain.ErrInvalidStateChange)
	}
	account.PendingAuthenticatorKey = authenticatorKey
	return s.accounts.Put(ctx, account)
}

// CompleteEnrollment promotes the staged authenticator key and marks the
// account fully registered.
func (s *service) CompleteEnrollment(ctx context.Context, account *domain.Account) error {
	if !account.CanEnroll() {
		return fmt.Errorf("enroll from state %s: %w", account.State(), domain.ErrInvalidStateChange)
	}
	if account.PendingAuthenticatorKey == "" {
		return fmt.Errorf("no authenticator staged: %w", domain.ErrInvalidStateChange)
	}
	now := s.now()
	account.AuthenticatorKey = account.PendingAuthenticatorKey
	account.PendingAuthenticatorKey = ""
	account.TOTPEnabled = true
	account.AccountRegistered = true
	account.RequiresAuthenticatorReset = false
	account.FailedAccessCount = 0
	account.LockedOutUntil = nil
	account.LastSignedInAt = &now
	if err := account.Validate(); err != nil {
		return err
	}
	return s.rotateAndRevoke(ctx, account)
}

// CheckSignIn evaluates sign-in prerequisites without side effects.
func (s *service) CheckSignIn(account *domain.Account) error {
	switch {
	case account == nil || account.DeletedAt != nil:
		return domain.ErrAccountMissing
	case !account.AccountRegistered:
		return domain.ErrNotRegistered
	case account.RequiresAuthenticatorReset:
		return domain.ErrResetRequired
	case account.Blocked:
		return domain.ErrSignInNotAllowed
	case account.IsLockedOut(s.now()):
		return domain.ErrLockedOut
	}
	return nil
}

// CanSignIn is CheckSignIn plus an explanatory email to the account owner.
// A locked-out account gets no email here: the lockout notice was already sent.
func (s *service) CanSignIn(ctx context.Context, account *domain.Account) error {
	err := s.CheckSignIn(account)
	var subject, body string
	switch {
	case errors.Is(err, domain.ErrNotRegistered):
		subject, body = subjectNotRegistered, bodyNotRegistered
	case errors.Is(err, domain.ErrResetRequired):
		subject, body = subjectResetRequired, bodyResetRequired
	case errors.Is(err, domain.ErrSignInNotAllowed):
		subject, body = subjectNotAllowed, bodyNotAllowed
	default:
		return err
	}
	s.notify(ctx, account, subject, body)
	return err
}

// RecordFailure counts a failed verification. Reaching the threshold locks the
// account and sends exactly one lockout notice; failures during an active
// lockout are ignored.
func (s *service) RecordFailure(ctx context.Context, account *domain.Account) error {
	if account == nil {
		return nil
	}
	now := s.now()
	if account.IsLockedOut(now) {
		return nil
	}
	account.FailedAccessCount++
	locked := account.FailedAccessCount >= s.opts.LockoutThreshold
	if locked {
		until := now.Add(s.opts.LockoutDuration)
		account.LockedOutUntil = &until
		account.FailedAccessCount = 0
	}
	if err := s.accounts.Put(ctx, account); err != nil {
		return fmt.Errorf("record failed access: %w", err)
	}
	if locked {
		metrics.Lockouts.Inc()
		slog.Warn("account locked out", "account_id", account.AccountID, "until", account.LockedOutUntil)
		s.notify(ctx, account, subjectLockedOut, bodyLockedOut)
	}
	return nil
}

func (s *service) RecordSuccess(ctx context.Context, account *domain.Account) error {
	now := s.now()
	account.FailedAccessCount = 0
	account.LockedOutUntil = nil
	account.LastSignedInAt = &now
	return s.rotateAndRevoke(ctx, account)
}

// AcknowledgeRecovery flags the account for authenticator re-enrolment and
// signs it out everywhere.
func (s *service) AcknowledgeRecovery(ctx context.Context, account *domain.Account) error {
	if !account.AccountRegistered {
		return fmt.Errorf("recover unregistered account: %w", domain.ErrNotRegistered)
	}
	account.RequiresAuthenticatorReset = true
	return s.rotateAndRevoke(ctx, account)
}

// RotateStamp replaces the security stamp, used on sign-out.
func (s *service) RotateStamp(ctx context.Context, account *domain.Account) error {
	if err := setStamp(account); err != nil {
		return err
	}
	return s.accounts.Put(ctx, account)
}

func (s *service) Block(ctx context.Context, accountID string) error {
	a, err := s.Get(ctx, accountID)
	if err != nil {
		return err
	}
	a.Blocked = true
	if err := s.rotateAndRevoke(ctx, a); err != nil {
		return err
	}
	slog.Info("account blocked", "account_id", accountID)
	return s.fanout.BroadcastLogout(ctx, a)
}

func (s *service) Unblock(ctx context.Context, accountID string) error {
	a, err := s.Get(ctx, accountID)
	if err != nil {
		return err
	}
	a.Blocked = false
	if err := s.accounts.Put(ctx, a); err != nil {
		return err
	}
	slog.Info("account unblocked", "account_id", accountID)
	return nil
}

// Delete notifies every relying party, then leaves the deletion marker for
// the external workflow. A partial failure still marks the account deleted.
func (s *service) Delete(ctx context.Context, accountID string) (fanout.Result, error) {
	a, err := s.Get(ctx, accountID)
	if err != nil {
		return fanout.ResultFailure, err
	}
	res, err := s.fanout.BroadcastDelete(ctx, a)
	if err != nil {
		return res, err
	}
	if err := s.sessions.SoftDeleteByAccount(ctx, accountID); err != nil {
		slog.Warn("could not revoke sessions of deleted account", "account_id", accountID, "err", err)
	}
	if err := s.accounts.SoftDelete(ctx, accountID); err != nil {
		return res, fmt.Errorf("mark account deleted: %w", err)
	}
	slog.Info("account deleted", "account_id", accountID, "fanout", res.String())
	return res, nil
}

func (s *service) rotateAndRevoke(ctx context.Context, account *domain.Account) error {
	if err := setStamp(account); err != nil {
		return err
	}
	if err := s.accounts.Put(ctx, account); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	if err := s.sessions.SoftDeleteByAccount(ctx, account.AccountID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

// notify sends a best-effort email; delivery failure never changes the outcome.
func (s *service) notify(ctx context.Context, account *domain.Account, subject, body string) {
	if err := s.mailer.SendEmail(ctx, account.Email, subject, body); err != nil {
		slog.Warn("could not send account notice", "account_id", account.AccountID, "subject", subject, "err", err)
	}
}

func setStamp(account *domain.Account) error {
	stamp, err := token.NewSecurityStamp()
	if err != nil {
		return err
	}
	account.SecurityStamp = stamp
	return nil
}
