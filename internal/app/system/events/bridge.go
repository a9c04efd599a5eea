// internal/app/system/events/bridge.go
package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/flyspot/internal/app/system/mq"
	"go.uber.org/zap"
)

// Bridge is a Bus that publishes to the maps-updated queue channel and
// feeds everything it consumes from that channel into the local broker.
type Bridge struct {
	backend mq.Backend
	broker  Deliverer
	log     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBridge(backend mq.Backend, broker Deliverer, log *zap.Logger) *Bridge {
	return &Bridge{backend: backend, broker: broker, log: log}
}

func (b *Bridge) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = b.backend.Publish(ctx, mq.ChannelMapsUpdated, data, map[string]string{"kind": ev.Kind})
	return err
}

// Start subscribes in the background and resubscribes after failures
// until Stop is called.
func (b *Bridge) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			err := b.backend.Subscribe(ctx, mq.ChannelMapsUpdated, b.handle)
			if ctx.Err() != nil {
				return
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				b.log.Warn("maps-updated subscription ended; retrying", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}()
	b.log.Info("maps-updated bridge started")
}

// Stop cancels the subscription and waits for it to exit.
func (b *Bridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	b.log.Info("maps-updated bridge stopped")
}

func (b *Bridge) handle(_ context.Context, msg mq.Message) error {
	var ev Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		// malformed payloads are dropped, not redelivered
		b.log.Warn("bad maps-updated payload", zap.String("id", msg.ID), zap.Error(err))
		return nil
	}
	b.broker.Deliver(ev)
	return nil
}
