package totp

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-idp-security/internal/domain"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/hkdf"
)

// Code purposes. Each call site uses its own purpose so codes never cross flows.
const (
	PurposeEmailConfirmation  = "EmailConfirmation"
	PurposeSessionVerify      = "GenericTOTP"
	PurposeEmailSignIn        = "EmailSignIn"
	PurposeResetAuthenticator = "ResetAuthenticator"

	// Authenticator purposes only label call sites; device codes carry no modifier.
	PurposeSignIn = "TwoFactorSignIn"
	PurposeStepUp = "StepUp"
	PurposeEnroll = "Enrollment"
)

const (
	secretLen        = 20
	secretInfo       = "totp-security-token"
	authenticatorPer = 30
)

var (
	ErrNotSupported    = errors.New("operation not supported by provider")
	ErrNoSecurityStamp = errors.New("account has no security stamp")
)

// Kind selects a provider strategy.
type Kind int

const (
	// KindGeneric issues short-lived codes derived from the security stamp.
	KindGeneric Kind = iota
	// KindAuthenticator validates codes from the user's enrolled authenticator.
	KindAuthenticator
)

func (k Kind) String() string {
	if k == KindAuthenticator {
		return "authenticator"
	}
	return "generic"
}

// TokenProvider issues and validates codes for one account.
type TokenProvider interface {
	CanIssue(a *domain.Account) bool
	Generate(purpose string, a *domain.Account) (string, error)
	Validate(purpose, code string, a *domain.Account) bool
}

// Options configures providers. Now defaults to time.Now.
type Options struct {
	Pepper []byte
	Now    func() time.Time
}

// NewProvider returns the strategy for kind.
func NewProvider(kind Kind, opts Options) TokenProvider {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	switch kind {
	case KindAuthenticator:
		return &authenticatorProvider{now: opts.Now}
	default:
		return &genericProvider{pepper: opts.Pepper, now: opts.Now}
	}
}

type genericProvider struct {
	pepper []byte
	now    func() time.Time
}

func (p *genericProvider) CanIssue(a *domain.Account) bool {
	return a != nil && a.Email != "" && a.EmailConfirmed
}

func (p *genericProvider) Generate(purpose string, a *domain.Account) (string, error) {
	secret, err := p.secret(a)
	if err != nil {
		return "", err
	}
	return Compute(secret, TimeStep(p.now()), modifier(purpose, a)), nil
}

func (p *genericProvider) Validate(purpose, code string, a *domain.Account) bool {
	if !isCode(code) {
		return false
	}
	secret, err := p.secret(a)
	if err != nil {
		return false
	}
	return ValidateAt(secret, code, modifier(purpose, a), p.now())
}

// secret derives the per-account key from the current security stamp, so a
// stamp rotation invalidates every outstanding code.
func (p *genericProvider) secret(a *domain.Account) ([]byte, error) {
	if a == nil || a.SecurityStamp == "" {
		return nil, ErrNoSecurityStamp
	}
	out := make([]byte, secretLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(a.SecurityStamp), p.pepper, []byte(secretInfo)), out); err != nil {
		return nil, fmt.Errorf("derive totp secret: %w", err)
	}
	return out, nil
}

func modifier(purpose string, a *domain.Account) string {
	return purpose + ":" + a.AccountID
}

type authenticatorProvider struct {
	now func() time.Time
}

func (p *authenticatorProvider) CanIssue(a *domain.Account) bool {
	return a != nil && a.AuthenticatorKey != ""
}

func (p *authenticatorProvider) Generate(string, *domain.Account) (string, error) {
	return "", ErrNotSupported
}

// Validate ignores purpose: authenticator codes come from the user's device.
func (p *authenticatorProvider) Validate(_ string, code string, a *domain.Account) bool {
	if !p.CanIssue(a) || !isCode(code) {
		return false
	}
	ok, err := totp.ValidateCustom(code, a.AuthenticatorKey, p.now().UTC(), authenticatorOpts())
	return err == nil && ok
}

func authenticatorOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    authenticatorPer,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// AuthenticatorKey is fresh enrolment material for an authenticator app.
type AuthenticatorKey struct {
	Secret string
	URI    string
}

// NewAuthenticatorKey generates a new base32 secret and its otpauth URI.
func NewAuthenticatorKey(issuer, accountName string) (*AuthenticatorKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		Period:      authenticatorPer,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate authenticator key: %w", err)
	}
	return &AuthenticatorKey{Secret: key.Secret(), URI: key.URL()}, nil
}
