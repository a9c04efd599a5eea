// internal/testutil/events.go
package testutil

import (
	"sync"

	"github.com/dalemusser/flyspot/internal/app/system/events"
)

// EventCapture is an events.Deliverer that keeps every delivered event.
// Wrap it in events.Local to use it as a Bus.
type EventCapture struct {
	mu  sync.Mutex
	got []events.Event
}

func (c *EventCapture) Deliver(ev events.Event) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, ev)
	return len(ev.UserIDs)
}

// For returns the events addressed to userID, oldest first.
func (c *EventCapture) For(userID string) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, ev := range c.got {
		for _, id := range ev.UserIDs {
			if id == userID {
				out = append(out, ev)
				break
			}
		}
	}
	return out
}
