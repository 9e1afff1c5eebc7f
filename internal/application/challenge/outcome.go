package challenge

import "github.com/go-idp-security/internal/application/session"

// ChallengeKind is the proof the user must supply next.
type ChallengeKind int

const (
	ChallengeEmailConfirmation ChallengeKind = iota + 1
	ChallengeEnrollment
	ChallengeTOTP
	ChallengeEmailCode
	ChallengeRecoveryCode
)

func (k ChallengeKind) String() string {
	switch k {
	case ChallengeEmailConfirmation:
		return "email_confirmation"
	case ChallengeEnrollment:
		return "enrollment"
	case ChallengeTOTP:
		return "totp"
	case ChallengeEmailCode:
		return "email_code"
	case ChallengeRecoveryCode:
		return "recovery_code"
	default:
		return "unknown"
	}
}

// Route is a terminal destination of a flow.
type Route int

const (
	RouteHome Route = iota + 1
	RouteSignIn
	RouteSignUp
	RouteRecovery
)

func (r Route) String() string {
	switch r {
	case RouteHome:
		return "home"
	case RouteSignIn:
		return "sign_in"
	case RouteSignUp:
		return "sign_up"
	case RouteRecovery:
		return "recovery"
	default:
		return "unknown"
	}
}

// User-visible notices. None of them tells whether an account exists.
const (
	NoticeCheckEmail        = "If this address can be used, we sent it a code."
	NoticeInvalidCode       = "The code is invalid or has expired."
	NoticeResetPending      = "An authenticator reset is pending. Finish the reset before signing in."
	NoticeAlreadyRegistered = "This address is already registered. Sign in instead."
	NoticeWelcome           = "You are signed in."
)

// EnrollmentMaterial is shown once when an authenticator is being enrolled.
type EnrollmentMaterial struct {
	Secret      string `json:"secret"`
	URI         string `json:"uri"`
	SessionCode string `json:"session_code"`
}

// Outcome is either a challenge to show or a route to redirect to. The
// constructors are the only way to build one, so it is never both.
type Outcome struct {
	kind       ChallengeKind
	route      Route
	notice     string
	enrollment *EnrollmentMaterial
	grant      *session.Grant
}

func Show(kind ChallengeKind, notice string) Outcome {
	return Outcome{kind: kind, notice: notice}
}

func Redirect(route Route, notice string) Outcome {
	return Outcome{route: route, notice: notice}
}

// Challenge returns the kind to show, if this outcome shows one.
func (o Outcome) Challenge() (ChallengeKind, bool) { return o.kind, o.kind != 0 }

// Route returns the redirect target, if this outcome redirects.
func (o Outcome) Route() (Route, bool) { return o.route, o.route != 0 }

func (o Outcome) Notice() string { return o.notice }

func (o Outcome) Enrollment() *EnrollmentMaterial { return o.enrollment }

func (o Outcome) Grant() *session.Grant { return o.grant }

func (o Outcome) withEnrollment(m *EnrollmentMaterial) Outcome {
	o.enrollment = m
	return o
}

func (o Outcome) withGrant(g *session.Grant) Outcome {
	o.grant = g
	return o
}

// RequestContext carries the caller identity into every operation. Anonymous
// flows identify the account by Email; authenticated ones by AccountID.
type RequestContext struct {
	AccountID  string
	SessionID  string
	Email      string
	RemoteAddr string
}
