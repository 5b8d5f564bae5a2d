// Package email provides transactional email sending.
//
// The EmailService interface has one SMTP implementation, which works with
// Mailhog in development and any authenticated SMTP relay in production.
package email

import (
	"context"
)

// EmailService sends transactional emails.
type EmailService interface {
	// SendVerificationEmail sends an email verification link to a new user.
	SendVerificationEmail(ctx context.Context, to, name, token string) error

	// SendPasswordResetEmail sends a password reset link.
	SendPasswordResetEmail(ctx context.Context, to, name, token string) error

	// SendWelcomeEmail greets a user after their email is verified.
	SendWelcomeEmail(ctx context.Context, to, name string) error

	// SendExportReadyEmail notifies a user that their data export can be
	// downloaded.
	SendExportReadyEmail(ctx context.Context, to, name, downloadURL string) error
}

// Email represents a single message.
type Email struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string // empty for Mailhog
	Password string // empty for Mailhog
	From     string
	FromName string
}

const (
	// DefaultFromEmail is the default sender for transactional emails.
	DefaultFromEmail = "noreply@faketect.com"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "FakeTect"
)
