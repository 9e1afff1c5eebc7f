package domain

import (
	"fmt"
	"time"
)

// Account is a password-less identity keyed by email and an enrolled authenticator.
// SecurityStamp rotates on every sign-in, sign-out and reset; all generic TOTP
// secrets are derived from it.
type Account struct {
	AccountID                  string     `json:"id" dynamodbav:"account_id"`
	Email                      string     `json:"email" dynamodbav:"email"`
	EmailConfirmed             bool       `json:"email_confirmed" dynamodbav:"email_confirmed"`
	AccountRegistered          bool       `json:"account_registered" dynamodbav:"account_registered"`
	RequiresAuthenticatorReset bool       `json:"requires_authenticator_reset" dynamodbav:"requires_authenticator_reset"`
	TOTPEnabled                bool       `json:"totp_enabled" dynamodbav:"totp_enabled"`
	EmailChallengeEnabled      bool       `json:"email_challenge_enabled" dynamodbav:"email_challenge_enabled"`
	AuthenticatorKey           string     `json:"-" dynamodbav:"authenticator_key"`
	PendingAuthenticatorKey    string     `json:"-" dynamodbav:"pending_authenticator_key"`
	FailedAccessCount          int        `json:"failed_access_count" dynamodbav:"failed_access_count"`
	LockedOutUntil             *time.Time `json:"locked_out_until,omitempty" dynamodbav:"locked_out_until"`
	Blocked                    bool       `json:"blocked" dynamodbav:"blocked"`
	Role                       string     `json:"role" dynamodbav:"role"`
	SecurityStamp              string     `json:"-" dynamodbav:"security_stamp"`
	DeletedAt                  *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt                  time.Time  `json:"created" dynamodbav:"created_at"`
	LastSignedInAt             *time.Time `json:"last_signed_in,omitempty" dynamodbav:"last_signed_in_at"`
	UpdatedAt                  time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// LifecycleState is derived from the account flags; it is never stored.
type LifecycleState int

const (
	StateUnregistered LifecycleState = iota
	StateUnenrolled
	StateFullyRegistered
	StateResetRequired
)

func (s LifecycleState) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateUnenrolled:
		return "unenrolled"
	case StateFullyRegistered:
		return "fully_registered"
	case StateResetRequired:
		return "reset_required"
	default:
		return "unknown"
	}
}

// State derives the lifecycle state from the stored flags.
func (a *Account) State() LifecycleState {
	switch {
	case a.AccountRegistered && a.RequiresAuthenticatorReset:
		return StateResetRequired
	case a.AccountRegistered:
		return StateFullyRegistered
	case a.EmailConfirmed:
		return StateUnenrolled
	default:
		return StateUnregistered
	}
}

// CanEnroll reports whether an authenticator may be (re-)enrolled.
func (a *Account) CanEnroll() bool {
	s := a.State()
	return s == StateUnenrolled || s == StateResetRequired
}

// IsLockedOut reports whether a lockout is active at now.
func (a *Account) IsLockedOut(now time.Time) bool {
	return a.LockedOutUntil != nil && now.Before(*a.LockedOutUntil)
}

// Validate checks the flag invariants.
func (a *Account) Validate() error {
	if a.AccountRegistered && !a.EmailConfirmed {
		return fmt.Errorf("registered account %s without confirmed email: %w", a.AccountID, ErrInvalidStateChange)
	}
	if a.RequiresAuthenticatorReset && !a.AccountRegistered {
		return fmt.Errorf("reset pending on unregistered account %s: %w", a.AccountID, ErrInvalidStateChange)
	}
	return nil
}
