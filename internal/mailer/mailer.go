// Package mailer sends transactional notification emails over SMTP.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/givewidget/givewidget/internal/config"
)

// Mailer sends a single email. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type smtpMailer struct {
	cfg    config.EmailConfig
	logger *slog.Logger
}

// New creates an SMTP-backed mailer.
func New(cfg config.EmailConfig, logger *slog.Logger) Mailer {
	return &smtpMailer{cfg: cfg, logger: logger}
}

// Send delivers a single HTML email. When email is disabled in config the
// message is logged and dropped, which keeps development environments from
// needing an SMTP server.
func (m *smtpMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !m.cfg.Enabled {
		m.logger.Info("email disabled, skipping send",
			slog.String("to", to),
			slog.String("subject", subject),
		)
		return nil
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", m.cfg.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	// net/smtp upgrades to STARTTLS when the server offers it.
	if err := smtp.SendMail(m.cfg.Addr(), auth, m.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
