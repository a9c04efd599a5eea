// internal/app/system/mq/memory.go
package mq

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Memory is an in-process backend. Every subscriber on a channel receives
// every message; delivery is asynchronous and failed handlers are retried
// up to three times. It serves single-instance deployments and tests.
type Memory struct {
	mu     sync.RWMutex
	subs   map[string][]chan Message
	closed bool
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]chan Message)}
}

var ErrClosed = errors.New("mq: backend closed")

func (m *Memory) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("mq: channel is required")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", ErrClosed
	}
	msg := Message{ID: newMessageID(), Data: append([]byte(nil), data...), Attributes: attrs}
	for _, ch := range m.subs[channel] {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return msg.ID, nil
}

func (m *Memory) Subscribe(ctx context.Context, channel string, handler Handler) error {
	ch := make(chan Message, 64)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.subs[channel] = append(m.subs[channel], ch)
	m.mu.Unlock()

	defer m.remove(channel, ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return ErrClosed
			}
			for attempt := 0; attempt < 3; attempt++ {
				if err := handler(ctx, msg); err == nil {
					break
				}
			}
		}
	}
}

func (m *Memory) remove(channel string, ch chan Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.subs[channel]
	for i, c := range list {
		if c == ch {
			m.subs[channel] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Close disconnects all subscribers.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for _, list := range m.subs {
		for _, ch := range list {
			close(ch)
		}
	}
	m.subs = map[string][]chan Message{}
	return nil
}

// Subscribers reports how many subscribers a channel has. Tests use it to
// wait for a subscription before publishing.
func (m *Memory) Subscribers(channel string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs[channel])
}
