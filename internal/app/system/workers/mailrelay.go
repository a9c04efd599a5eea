// internal/app/system/workers/mailrelay.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/flyspot/internal/app/system/mailer"
	"github.com/dalemusser/flyspot/internal/app/system/mq"
	"go.uber.org/zap"
)

// MailRelay consumes the mail channel and delivers each message over SMTP.
type MailRelay struct {
	backend mq.Backend
	sender  mailer.Sender
	log     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMailRelay(backend mq.Backend, sender mailer.Sender, logger *zap.Logger) *MailRelay {
	return &MailRelay{backend: backend, sender: sender, log: logger}
}

// Start begins consuming in the background, resubscribing after errors.
func (w *MailRelay) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go w.run(ctx)
	w.log.Info("mail relay worker started")
}

// Stop signals the worker and waits for it to finish.
func (w *MailRelay) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.log.Info("mail relay worker stopped")
}

func (w *MailRelay) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		err := w.backend.Subscribe(ctx, mq.ChannelMail, w.handle)
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			w.log.Warn("mail subscription ended; retrying", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (w *MailRelay) handle(ctx context.Context, msg mq.Message) error {
	var e mailer.Email
	if err := json.Unmarshal(msg.Data, &e); err != nil {
		w.log.Warn("dropping malformed mail message", zap.String("id", msg.ID), zap.Error(err))
		return nil
	}
	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := w.sender.Send(sendCtx, e); err != nil {
		w.log.Warn("relay send failed", zap.String("id", msg.ID), zap.String("to", e.To), zap.Error(err))
		return err
	}
	return nil
}
