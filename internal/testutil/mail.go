// internal/testutil/mail.go
package testutil

import (
	"context"
	"sync"

	"github.com/dalemusser/flyspot/internal/app/system/mailer"
)

// MailCapture is a mailer.Sender that keeps every message. Set Err to
// make sends fail.
type MailCapture struct {
	mu   sync.Mutex
	sent []mailer.Email
	Err  error
}

func (m *MailCapture) Send(_ context.Context, e mailer.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, e)
	return nil
}

// Sent returns a copy of the delivered messages.
func (m *MailCapture) Sent() []mailer.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Email(nil), m.sent...)
}

// Last returns the most recent message and whether there was one.
func (m *MailCapture) Last() (mailer.Email, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return mailer.Email{}, false
	}
	return m.sent[len(m.sent)-1], true
}
