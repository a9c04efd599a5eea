// internal/app/system/mailer/queued.go
package mailer

import (
	"context"
	"encoding/json"

	"github.com/dalemusser/flyspot/internal/app/system/mq"
)

// Queued is a Sender that publishes messages to the mail channel. The mail
// relay worker delivers them.
type Queued struct {
	backend mq.Backend
}

func NewQueued(backend mq.Backend) *Queued {
	return &Queued{backend: backend}
}

func (q *Queued) Send(ctx context.Context, e Email) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = q.backend.Publish(ctx, mq.ChannelMail, data, map[string]string{"to": e.To})
	return err
}
