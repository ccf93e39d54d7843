package accounts

import (
	"context"
	"fmt"
)

// Notifier is the outbound notification port. Implementations deliver the
// verification and reset emails; errors propagate to the caller as-is.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, email, name, token string) error
	SendPasswordResetEmail(ctx context.Context, email, name, token string) error
}

// LogNotifier prints outbound notifications, useful for development and
// examples where no mail sender is wired.
type LogNotifier struct{}

func (LogNotifier) SendVerificationEmail(_ context.Context, email, name, token string) error {
	printEmailNotification("verify your email", email, name, fmt.Sprintf("/verify-email/%s", token))
	return nil
}

func (LogNotifier) SendPasswordResetEmail(_ context.Context, email, name, token string) error {
	printEmailNotification("reset your password", email, name, fmt.Sprintf("/password-reset/%s", token))
	return nil
}

func printEmailNotification(subject, email, name, link string) {
	fmt.Println("====== SENDING EMAIL NOTIFICATION =======")
	fmt.Printf("to: %s <%s>\n", name, email)
	fmt.Printf("subject: %s\n", subject)
	fmt.Printf("link: %s\n", link)
}

// NoopNotifier drops notifications on the floor
type NoopNotifier struct{}

func (NoopNotifier) SendVerificationEmail(context.Context, string, string, string) error {
	return nil
}

func (NoopNotifier) SendPasswordResetEmail(context.Context, string, string, string) error {
	return nil
}
