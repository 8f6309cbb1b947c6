package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type EmailConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	ToEmail   string
	ToName    string
}

// EmailSink mails every notification through SendGrid. A sent email cannot
// be withdrawn, so Dismiss does nothing.
type EmailSink struct {
	client *sendgrid.Client
	cfg    EmailConfig
}

func NewEmailSink(cfg EmailConfig) *EmailSink {
	return &EmailSink{
		client: sendgrid.NewSendClient(cfg.APIKey),
		cfg:    cfg,
	}
}

func (s *EmailSink) Notify(ctx context.Context, reminderID int64, title, body string) error {
	from := mail.NewEmail(s.cfg.FromName, s.cfg.FromEmail)
	to := mail.NewEmail(s.cfg.ToName, s.cfg.ToEmail)
	subject := fmt.Sprintf("Reminder: %s", title)
	htmlContent := fmt.Sprintf("<p><strong>%s</strong></p><p>%s</p>", html.EscapeString(title), html.EscapeString(body))

	message := mail.NewSingleEmail(from, subject, to, body, htmlContent)
	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send reminder email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send reminder email to %s: %d", s.cfg.ToEmail, response.StatusCode)
	}

	slog.DebugContext(ctx, "reminder email sent",
		slog.Int64("reminder_id", reminderID),
		slog.Int("status_code", response.StatusCode),
	)
	return nil
}

func (s *EmailSink) Dismiss(_ context.Context, _ int64) error {
	return nil
}
