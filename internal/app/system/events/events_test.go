package events

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/flyspot/internal/app/system/mq"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// openStream connects userID to b over HTTP and waits until the broker
// has registered the stream. Cancel the context to disconnect.
func openStream(t *testing.T, b *Broker, userID string) (*bufio.Scanner, context.CancelFunc) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.Serve(w, r, userID)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		t.Fatalf("GET: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for b.Subscribers(userID) == 0 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("stream did not register")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return bufio.NewScanner(resp.Body), cancel
}

func nextEvent(t *testing.T, lines *bufio.Scanner) (kind, data string) {
	t.Helper()
	for lines.Scan() {
		l := lines.Text()
		switch {
		case strings.HasPrefix(l, "event: "):
			kind = strings.TrimPrefix(l, "event: ")
		case strings.HasPrefix(l, "data: "):
			return kind, strings.TrimPrefix(l, "data: ")
		}
	}
	t.Fatal("stream ended before an event arrived")
	return "", ""
}

func TestBroker_DeliversOnlyToListedUsers(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	alice, stopA := openStream(t, b, "alice")
	defer stopA()
	_, stopB := openStream(t, b, "bob")
	defer stopB()

	if n := b.Deliver(Event{Kind: MapUpdated, MapID: "m1", UserIDs: []string{"alice"}}); n != 1 {
		t.Fatalf("Deliver = %d, want 1", n)
	}
	kind, data := nextEvent(t, alice)
	if kind != MapUpdated || !strings.Contains(data, `"map_id":"m1"`) {
		t.Errorf("alice got %s %s", kind, data)
	}
	if n := b.Deliver(Event{Kind: MapUpdated, UserIDs: []string{"carol"}}); n != 0 {
		t.Errorf("Deliver to a user without streams = %d, want 0", n)
	}
}

func TestBroker_DisconnectReleasesChannel(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	_, stop := openStream(t, b, "u")
	stop()

	deadline := time.Now().Add(2 * time.Second)
	for b.Subscribers("u") != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := b.Subscribers("u"); n != 0 {
		t.Errorf("expected no subscribers left, got %d", n)
	}
}

type recorder struct {
	mu  sync.Mutex
	got []Event
}

func (r *recorder) Deliver(ev Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev)
	return len(ev.UserIDs)
}

func (r *recorder) events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.got...)
}

type fixedAudience []primitive.ObjectID

func (f fixedAudience) MapAudience(context.Context, primitive.ObjectID) ([]primitive.ObjectID, error) {
	return f, nil
}

func TestNotifier_MapChangedDedupesAudience(t *testing.T) {
	sink := &recorder{}
	owner := primitive.NewObjectID()
	guest := primitive.NewObjectID()

	n := NewNotifier(Local{Broker: sink}, fixedAudience{owner, guest, guest}, zap.NewNop())
	mapID := primitive.NewObjectID()
	n.MapChanged(context.Background(), SpotsChanged, mapID, guest)

	got := sink.events()
	if len(got) != 1 {
		t.Fatalf("published %d events, want 1", len(got))
	}
	if ev := got[0]; len(ev.UserIDs) != 2 {
		t.Errorf("UserIDs = %v, want owner and guest once each", ev.UserIDs)
	} else if ev.MapID != mapID.Hex() || ev.Kind != SpotsChanged {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestNotifier_NilIsSafe(t *testing.T) {
	var n *Notifier
	n.MapChanged(context.Background(), MapUpdated, primitive.NewObjectID())
}

func TestBridge_RoundTripThroughQueue(t *testing.T) {
	backend := mq.NewMemory()
	defer backend.Close()
	sink := &recorder{}
	bridge := NewBridge(backend, sink, zap.NewNop())
	bridge.Start()
	defer bridge.Stop()

	deadline := time.Now().Add(time.Second)
	for backend.Subscribers(mq.ChannelMapsUpdated) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("bridge did not subscribe")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := bridge.Publish(context.Background(), Event{Kind: MapDeleted, MapID: "m", UserIDs: []string{"u1"}}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	deadline = time.Now().Add(time.Second)
	for len(sink.events()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event did not arrive through the bridge")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if ev := sink.events()[0]; ev.Kind != MapDeleted || ev.UserIDs[0] != "u1" {
		t.Errorf("unexpected event %+v", ev)
	}
}
