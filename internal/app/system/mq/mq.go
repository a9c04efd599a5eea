// internal/app/system/mq/mq.go

// Package mq is the broker abstraction behind queued mail delivery and the
// cross-instance map update fan-out. RabbitMQ, Google Pub/Sub and an
// in-process backend implement it.
package mq

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// Channel names used by the app.
const (
	ChannelMail        = "flyspot.mail"
	ChannelMapsUpdated = "flyspot.maps-updated"
)

// Message is a broker-agnostic delivery.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes one message. A returned error asks the broker to
// redeliver.
type Handler func(ctx context.Context, msg Message) error

// Backend publishes to and consumes from named channels. Subscribe blocks
// until ctx is done or the backend fails.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

func newMessageID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(buf[:])
}
