package lifecycle

const (
	subjectNotRegistered = "Finish setting up your account"
	bodyNotRegistered    = "Someone tried to sign in with this address, but registration was never completed.\n\nStart sign-up again to confirm your email and enroll an authenticator."

	subjectResetRequired = "Authenticator reset pending"
	bodyResetRequired    = "A sign-in was attempted while an authenticator reset is pending for this account.\n\nComplete the reset to enroll a new authenticator before signing in."

	subjectNotAllowed = "Sign-in not allowed"
	bodyNotAllowed    = "A sign-in was attempted on an account that is currently blocked.\n\nContact support if you believe this is a mistake."

	subjectLockedOut = "Your account has been locked"
	bodyLockedOut    = "We locked your account after several failed verification attempts.\n\nYou can try again later. If this was not you, start account recovery."
)
