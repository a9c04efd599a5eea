package mapevents_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/flyspot/internal/app/features/mapevents"
	"github.com/dalemusser/flyspot/internal/app/system/events"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"github.com/dalemusser/flyspot/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestStream_RequiresSignIn(t *testing.T) {
	h := mapevents.NewHandler(events.NewBroker(), zap.NewNop())
	rec := testutil.NewRecorder()
	h.ServeStream(rec, testutil.NewRequest("GET", "/events/maps"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestStream_DeliversOwnEventsOnly(t *testing.T) {
	broker := events.NewBroker()
	defer broker.Close()
	h := mapevents.NewHandler(broker, zap.NewNop())
	me := models.User{ID: primitive.NewObjectID(), Name: "Pilot", Email: "pilot@example.com", Role: models.RoleUser}
	other := primitive.NewObjectID().Hex()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeStream(w, testutil.WithUser(r, me))
	}))
	defer srv.Close()

	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	lines := bufio.NewScanner(resp.Body)
	if !lines.Scan() || !strings.HasPrefix(lines.Text(), ": connected") {
		t.Fatalf("missing connected comment, got %q", lines.Text())
	}

	deadline := time.Now().Add(2 * time.Second)
	for broker.Subscribers(me.ID.Hex()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	broker.Deliver(events.Event{Kind: events.MapUpdated, MapID: "m1", UserIDs: []string{other}})
	broker.Deliver(events.Event{Kind: events.MapShared, MapID: "m2", UserIDs: []string{me.ID.Hex()}})

	var got []string
	for lines.Scan() {
		l := lines.Text()
		if strings.HasPrefix(l, "event: ") || strings.HasPrefix(l, "data: ") {
			got = append(got, l)
		}
		if len(got) == 2 {
			break
		}
	}
	if len(got) != 2 || got[0] != "event: map.shared" || !strings.Contains(got[1], `"map_id":"m2"`) {
		t.Fatalf("unexpected stream %q", got)
	}
	if strings.Contains(got[1], "user_ids") {
		t.Error("recipient list leaked to the client")
	}

	cancel()
	deadline = time.Now().Add(2 * time.Second)
	for broker.Subscribers(me.ID.Hex()) != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := broker.Subscribers(me.ID.Hex()); n != 0 {
		t.Errorf("subscription not released, %d left", n)
	}
}

func TestStream_SendsKeepAlive(t *testing.T) {
	broker := events.NewBrokerWithConfig(events.BrokerConfig{KeepAlive: 20 * time.Millisecond, Buffer: 4})
	defer broker.Close()
	h := mapevents.NewHandler(broker, zap.NewNop())
	me := models.User{ID: primitive.NewObjectID(), Name: "Pilot", Email: "pilot@example.com", Role: models.RoleUser}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeStream(w, testutil.WithUser(r, me))
	}))
	defer srv.Close()

	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	for lines.Scan() {
		if lines.Text() == ": keep-alive" {
			return
		}
	}
	t.Fatal("no keep-alive comment on an idle stream")
}
