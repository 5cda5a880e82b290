package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/kazz187/taskdesk/internal/config"
)

// Mailer delivers one plain text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPMailer struct {
	env *config.MailEnv
}

var _ Mailer = (*SMTPMailer)(nil)

func NewSMTPMailer(env *config.MailEnv) *SMTPMailer {
	return &SMTPMailer{env: env}
}

// Send is a no-op while no SMTP host is configured.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if !m.env.Enabled() {
		slog.DebugContext(ctx, "mail: SMTP not configured, skipping", "to", to, "subject", subject)
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(m.env.MailFrom); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.env.MailFrom, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(m.env.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.env.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.env.SMTPUsername),
			mail.WithPassword(m.env.SMTPPassword),
		)
	}
	client, err := mail.NewClient(m.env.SMTPHost, opts...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}
