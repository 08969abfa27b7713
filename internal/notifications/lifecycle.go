package notifications

import "fmt"

// Mail kinds used for dispatch metrics and logs.
const (
	KindVerification    = "verification"
	KindPasswordReset   = "password_reset"
	KindPasswordChanged = "password_changed"
	KindNotification    = "notification"
)

const (
	defaultFooter        = "You received this email because an account was registered with this address."
	resetIgnoreCopy      = "If you did not request a password reset you can ignore this email; your password will not change."
	passwordChangedCopy  = "The password of your account was just changed. If this was not you, reset your password immediately."
	verificationBodyCopy = "Please confirm your email address to activate your account."
)

// VerificationContent builds the email sent after signup.
func VerificationContent(firstName, link, token string) Content {
	return Content{
		Subject: "Verify your email address",
		Header:  greeting(firstName),
		Blocks: []Block{
			{Title: "Confirm your email", Content: verificationBodyCopy, Link: link},
			{Title: "Verification code", Content: token},
		},
		Footer: defaultFooter,
	}
}

// PasswordResetContent builds the email carrying a reset token.
func PasswordResetContent(firstName, token string, link string) Content {
	return Content{
		Subject: "Reset your password",
		Header:  greeting(firstName),
		Blocks: []Block{
			{Title: "Password reset requested", Content: "Use the token below to choose a new password.", Link: link},
			{Title: "Reset token", Content: token},
			{Content: resetIgnoreCopy},
		},
		Footer: defaultFooter,
	}
}

// PasswordChangedContent builds the confirmation sent after a successful reset.
func PasswordChangedContent(firstName string) Content {
	return Content{
		Subject: "Your password was changed",
		Header:  greeting(firstName),
		Blocks:  []Block{{Title: "Password updated", Content: passwordChangedCopy}},
		Footer:  defaultFooter,
	}
}

func greeting(firstName string) string {
	if firstName == "" {
		return "Hello,"
	}
	return fmt.Sprintf("Hello %s,", firstName)
}
