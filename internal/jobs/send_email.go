// Package jobs contains the background job handlers registered with the
// worker.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/faketect/faketect/internal/email"
	"github.com/faketect/faketect/internal/worker"
)

// Email template identifiers accepted by the send_email job.
const (
	EmailTemplateVerification  = "verification"
	EmailTemplatePasswordReset = "password_reset"
	EmailTemplateWelcome       = "welcome"
	EmailTemplateExportReady   = "export_ready"
)

// SendEmailHandler delivers queued transactional emails. Queueing decouples
// request latency from the SMTP round trip and gives retries for free.
type SendEmailHandler struct {
	emailService email.EmailService
	logger       *slog.Logger
}

// NewSendEmailHandler creates the handler.
func NewSendEmailHandler(emailService email.EmailService, logger *slog.Logger) *SendEmailHandler {
	return &SendEmailHandler{emailService: emailService, logger: logger}
}

// Type returns the job type identifier.
func (h *SendEmailHandler) Type() string {
	return worker.JobTypeSendEmail
}

// Handle delivers one email. Unknown templates are permanent errors; SMTP
// failures are retried.
func (h *SendEmailHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.SendEmailPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}
	if p.To == "" {
		return worker.NewPermanentError(fmt.Errorf("missing recipient"))
	}

	name := p.Data["name"]

	switch p.Template {
	case EmailTemplateVerification:
		return h.emailService.SendVerificationEmail(ctx, p.To, name, p.Data["token"])
	case EmailTemplatePasswordReset:
		return h.emailService.SendPasswordResetEmail(ctx, p.To, name, p.Data["token"])
	case EmailTemplateWelcome:
		return h.emailService.SendWelcomeEmail(ctx, p.To, name)
	case EmailTemplateExportReady:
		return h.emailService.SendExportReadyEmail(ctx, p.To, name, p.Data["download_url"])
	default:
		return worker.NewPermanentError(fmt.Errorf("unknown email template: %s", p.Template))
	}
}
