package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"
	"time"
)

// SMTPEmailService sends emails via SMTP. Templates are compiled at
// construction so a malformed template fails startup, not a send.
type SMTPEmailService struct {
	config    SMTPConfig
	baseURL   string
	templates *template.Template
	logger    *slog.Logger
}

// NewSMTPEmailService creates an SMTP-backed email service. baseURL is the
// application's public URL used to build links.
func NewSMTPEmailService(config SMTPConfig, baseURL string, logger *slog.Logger) (*SMTPEmailService, error) {
	if config.From == "" {
		config.From = DefaultFromEmail
	}
	if config.FromName == "" {
		config.FromName = DefaultFromName
	}

	templates, err := template.New("email").Parse(emailTemplates)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &SMTPEmailService{
		config:    config,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		templates: templates,
		logger:    logger,
	}, nil
}

// SendVerificationEmail sends an email verification link to a new user.
func (s *SMTPEmailService) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, token)

	htmlBody, err := s.render("verification", map[string]interface{}{
		"Name": name, "VerifyURL": verifyURL, "Year": time.Now().Year(),
	})
	if err != nil {
		return err
	}

	textBody := fmt.Sprintf(`Hi %s,

Welcome to FakeTect! Please verify your email address by clicking the link below:

%s

This link will expire in 24 hours.

If you didn't create an account with FakeTect, you can safely ignore this email.

Thanks,
The FakeTect Team
`, name, verifyURL)

	return s.send(ctx, Email{
		To:       to,
		Subject:  "Verify your FakeTect account",
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
}

// SendPasswordResetEmail sends a password reset link.
func (s *SMTPEmailService) SendPasswordResetEmail(ctx context.Context, to, name, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)

	htmlBody, err := s.render("password_reset", map[string]interface{}{
		"Name": name, "ResetURL": resetURL, "Year": time.Now().Year(),
	})
	if err != nil {
		return err
	}

	textBody := fmt.Sprintf(`Hi %s,

We received a request to reset your password. Click the link below to choose a new password:

%s

This link will expire in 1 hour.

If you didn't request a password reset, you can safely ignore this email. Your password will not be changed.

Thanks,
The FakeTect Team
`, name, resetURL)

	return s.send(ctx, Email{
		To:       to,
		Subject:  "Reset your FakeTect password",
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
}

// SendWelcomeEmail greets a user after verification.
func (s *SMTPEmailService) SendWelcomeEmail(ctx context.Context, to, name string) error {
	htmlBody, err := s.render("welcome", map[string]interface{}{
		"Name": name, "AppURL": s.baseURL, "Year": time.Now().Year(),
	})
	if err != nil {
		return err
	}

	textBody := fmt.Sprintf(`Hi %s,

Your FakeTect account is ready. Upload an image, video, or text at %s to get your first AI-content verdict.

Thanks,
The FakeTect Team
`, name, s.baseURL)

	return s.send(ctx, Email{
		To:       to,
		Subject:  "Welcome to FakeTect",
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
}

// SendExportReadyEmail notifies a user that their data export is available.
func (s *SMTPEmailService) SendExportReadyEmail(ctx context.Context, to, name, downloadURL string) error {
	htmlBody, err := s.render("export_ready", map[string]interface{}{
		"Name": name, "DownloadURL": downloadURL, "Year": time.Now().Year(),
	})
	if err != nil {
		return err
	}

	textBody := fmt.Sprintf(`Hi %s,

Your data export is ready. You can download it here:

%s

The link expires in 7 days.

Thanks,
The FakeTect Team
`, name, downloadURL)

	return s.send(ctx, Email{
		To:       to,
		Subject:  "Your FakeTect data export is ready",
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
}

func (s *SMTPEmailService) render(name string, data map[string]interface{}) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s email template: %w", name, err)
	}
	return buf.String(), nil
}

// send delivers the message via SMTP.
func (s *SMTPEmailService) send(ctx context.Context, email Email) error {
	msg := s.buildMessage(email)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var auth smtp.Auth
	if s.config.Username != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	if err := smtp.SendMail(addr, auth, s.config.From, []string{email.To}, msg); err != nil {
		s.logger.Error("failed to send email", "to", email.To, "subject", email.Subject, "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent", "to", email.To, "subject", email.Subject)
	return nil
}

// buildMessage constructs the raw multipart message with headers.
func (s *SMTPEmailService) buildMessage(email Email) []byte {
	var buf bytes.Buffer

	fromHeader := fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	buf.WriteString(fmt.Sprintf("From: %s\r\n", fromHeader))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", email.To))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")

	boundary := "===============FAKETECT_BOUNDARY==============="
	buf.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
	buf.WriteString("\r\n")

	buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(email.TextBody)
	buf.WriteString("\r\n")

	buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(email.HTMLBody)
	buf.WriteString("\r\n")

	buf.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	return buf.Bytes()
}
