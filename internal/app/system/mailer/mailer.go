// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/pantry/email"
	"go.uber.org/zap"
)

// Email is one outgoing message with plain-text and HTML alternatives.
type Email struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	TextBody string `json:"text_body"`
	HTMLBody string `json:"html_body"`
}

// Sender delivers email. Mailer and the queued relay both satisfy it.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Config holds SMTP settings. An empty Host puts the mailer in log-only
// mode, which is what development uses.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
}

// Mailer sends over SMTP through waffle's email sender, which negotiates
// STARTTLS on 587 and implicit TLS on 465.
type Mailer struct {
	smtp    *email.Sender
	enabled bool
	log     *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Mailer {
	return &Mailer{
		smtp: email.NewSender(email.Config{
			Host:        cfg.Host,
			Port:        cfg.Port,
			Username:    cfg.User,
			Password:    cfg.Pass,
			FromAddress: cfg.From,
			FromName:    cfg.FromName,
			UseSSL:      cfg.Port == 465,
		}),
		enabled: cfg.Host != "",
		log:     log,
	}
}

// Enabled reports whether an SMTP host is configured.
func (m *Mailer) Enabled() bool { return m.enabled }

// Send delivers e. In log-only mode the message is logged and dropped.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if e.To == "" {
		return fmt.Errorf("mailer: empty recipient")
	}
	if !m.Enabled() {
		m.log.Info("mail (log-only)",
			zap.String("to", e.To),
			zap.String("subject", e.Subject),
			zap.String("text", e.TextBody))
		return nil
	}
	if err := m.smtp.Send(ctx, message(e)); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", e.To, err)
	}
	return nil
}

func message(e Email) email.Message {
	return email.Message{
		To:       []string{e.To},
		Subject:  e.Subject,
		TextBody: e.TextBody,
		HTMLBody: e.HTMLBody,
	}
}
