package challenge

import (
	"fmt"

	"github.com/go-idp-security/internal/pkg/totp"
)

// codeMessage builds the email carrying code for purpose.
func codeMessage(purpose, code string) (subject, body string) {
	switch purpose {
	case totp.PurposeEmailConfirmation:
		subject = "Confirm your email address"
		body = "Use this code to confirm your email address: %s\n\nThe code expires in a few minutes."
	case totp.PurposeEmailSignIn:
		subject = "Your sign-in code"
		body = "Use this code to sign in: %s\n\nIf you did not try to sign in, you can ignore this email."
	case totp.PurposeResetAuthenticator:
		subject = "Reset your authenticator"
		body = "Use this code to reset your authenticator: %s\n\nIf you did not ask for a reset, someone may know your email address. Your account stays locked to your current authenticator until the code is used."
	default:
		subject = "Your verification code"
		body = "Your verification code: %s"
	}
	return subject, fmt.Sprintf(body, code)
}

const (
	subjectFinishSignUp = "Finish signing up"
	bodyFinishSignUp    = "Someone asked to reset the authenticator for this address, but registration was never completed.\n\nSign up again to finish setting up your account. If this was not you, you can ignore this email."
)

// emailPurposes are the purposes whose codes travel by email and so have
// delivery records that can be resent or cancelled.
var emailPurposes = map[string]bool{
	totp.PurposeEmailConfirmation:  true,
	totp.PurposeEmailSignIn:        true,
	totp.PurposeResetAuthenticator: true,
}
