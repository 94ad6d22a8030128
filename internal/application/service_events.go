package application

const (
	// eventTypeUserRegistered is emitted when a user account is created.
	eventTypeUserRegistered = "user.registered"
	// eventTypeEmailVerificationRequested carries a one-time verification token to the mailer.
	eventTypeEmailVerificationRequested = "auth.email_verification.requested"
	// eventTypePasswordResetRequested carries a one-time reset token to the mailer.
	eventTypePasswordResetRequested = "auth.password_reset.requested"
	// eventTypeStepUpCodeIssued carries the e-mail code of a risk step-up challenge.
	eventTypeStepUpCodeIssued = "auth.step_up.code_issued"
)
