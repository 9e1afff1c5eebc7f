package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrBadRequest      = errors.New("bad request")
	ErrTooManyRequests = errors.New("too many requests")
)

// Delivery throttle refusals. The messages are shown to the user as-is.
var (
	ErrResendBlocked  = errors.New("this code can no longer be resent, start over to get a new one")
	ErrResendCooldown = errors.New("a code was sent a moment ago, try again shortly")
)

// Sign-in policy refusals returned by the lifecycle service. They are never shown to
// the caller verbatim; the challenge orchestrator turns them into outcomes.
var (
	ErrAccountMissing     = errors.New("account missing")
	ErrNotRegistered      = errors.New("account not registered")
	ErrResetRequired      = errors.New("authenticator reset required")
	ErrSignInNotAllowed   = errors.New("sign-in not allowed")
	ErrLockedOut          = errors.New("account locked out")
	ErrInvalidStateChange = errors.New("invalid account state change")
)
