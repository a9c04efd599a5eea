// internal/app/system/events/broker.go

// Package events carries "maps updated" notifications to signed-in users.
// A Broker holds the server-sent event streams open on this instance; a Bus
// delivers published events to brokers, either directly or through a
// message queue so every instance sees them.
package events

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/waffle/pantry/sse"
)

// Event kinds.
const (
	MapCreated   = "map.created"
	MapUpdated   = "map.updated"
	MapDeleted   = "map.deleted"
	MapShared    = "map.shared"
	MapUnshared  = "map.unshared"
	SpotsChanged = "spots.changed"
)

// Event tells the listed users that something about a map changed.
type Event struct {
	Kind    string   `json:"kind"`
	MapID   string   `json:"map_id,omitempty"`
	UserIDs []string `json:"user_ids"`
}

// payload is what a client receives. Recipients are not sent back.
type payload struct {
	Kind  string `json:"kind"`
	MapID string `json:"map_id,omitempty"`
}

// BrokerConfig tunes the streams a Broker serves.
type BrokerConfig struct {
	// KeepAlive is how often an idle stream sends a comment line so
	// proxies keep the connection open.
	KeepAlive time.Duration
	// Retry is the reconnect delay suggested to browsers.
	Retry time.Duration
	// Buffer is how many undelivered events a stream holds before new ones
	// are dropped; the client re-fetches on the next event anyway.
	Buffer int
}

// DefaultBrokerConfig is used by NewBroker.
func DefaultBrokerConfig() BrokerConfig {
	return BrokerConfig{KeepAlive: 25 * time.Second, Retry: 3 * time.Second, Buffer: 16}
}

// Broker fans events out to the streams open on this instance. Each stream
// joins the channel named after its user.
type Broker struct {
	streams *sse.Broker

	// mu orders joins against the cleanup of empty user channels.
	mu sync.Mutex
}

func NewBroker() *Broker { return NewBrokerWithConfig(DefaultBrokerConfig()) }

func NewBrokerWithConfig(cfg BrokerConfig) *Broker {
	b := &Broker{streams: sse.NewBrokerWithConfig(sse.BrokerConfig{
		KeepAliveInterval: cfg.KeepAlive,
		RetryInterval:     cfg.Retry,
		ClientBufferSize:  cfg.Buffer,
	})}
	b.streams.OnDisconnect = b.forget
	return b
}

func channelFor(userID string) string { return "user:" + userID }

// Serve streams userID's events to w until the request ends. It answers
// 500 itself when w cannot flush.
func (b *Broker) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	b.streams.HandleRequest(w, r, func(c *sse.Client) {
		b.mu.Lock()
		c.Set("user_id", userID)
		c.Subscribe(channelFor(userID))
		b.mu.Unlock()
		_ = c.Stream().SendComment("connected")
	})
}

// forget drops a user's channel once its last stream is gone.
func (b *Broker) forget(c *sse.Client) {
	name := channelFor(c.GetString("user_id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch := b.streams.Channel(name); ch != nil && ch.Size() == 0 {
		b.streams.DeleteChannel(name)
	}
}

// Deliver hands ev to every stream of every listed user and reports how
// many streams accepted it.
func (b *Broker) Deliver(ev Event) int {
	msg, err := sse.NewJSONEvent(ev.Kind, payload{Kind: ev.Kind, MapID: ev.MapID})
	if err != nil {
		return 0
	}
	n := 0
	for _, uid := range ev.UserIDs {
		ch := b.streams.Channel(channelFor(uid))
		if ch == nil {
			continue
		}
		ch.ForEach(func(c *sse.Client) {
			if c.Send(msg) {
				n++
			}
		})
	}
	return n
}

// Subscribers reports how many streams userID has open.
func (b *Broker) Subscribers(userID string) int {
	if ch := b.streams.Channel(channelFor(userID)); ch != nil {
		return ch.Size()
	}
	return 0
}

// Close ends every open stream.
func (b *Broker) Close() { b.streams.Close() }

// Bus publishes events.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
}

// Deliverer hands an event to local listeners.
type Deliverer interface {
	Deliver(ev Event) int
}

// Local is a Bus that delivers straight to one broker.
type Local struct{ Broker Deliverer }

func (l Local) Publish(_ context.Context, ev Event) error {
	l.Broker.Deliver(ev)
	return nil
}
