package invites

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dalemusser/flyspot/internal/app/system/mailer"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Email
	err  error
}

func (r *recordingSender) Send(_ context.Context, e mailer.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, e)
	return r.err
}

func TestSend_BuildsLinkToMap(t *testing.T) {
	s := &recordingSender{}
	n := New(s, "FlySpot", "https://flyspot.test/", zap.NewNop()).Sync()
	mapID := primitive.NewObjectID()

	n.Send(Invite{To: "guest@example.com", OwnerName: "Ana", MapName: "Coast", MapID: mapID, Role: "READ"})

	if len(s.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(s.sent))
	}
	if !strings.Contains(s.sent[0].TextBody, "https://flyspot.test/maps/"+mapID.Hex()) {
		t.Errorf("missing map link in %q", s.sent[0].TextBody)
	}
}

func TestSend_SwallowsFailures(t *testing.T) {
	s := &recordingSender{err: errors.New("smtp down")}
	n := New(s, "FlySpot", "http://x", zap.NewNop()).Sync()

	n.Send(Invite{To: "guest@example.com", MapID: primitive.NewObjectID()})

	if len(s.sent) != 1 {
		t.Error("expected one attempt")
	}
}

func TestSend_NilAndEmptyRecipient(t *testing.T) {
	var n *Notifier
	n.Send(Invite{To: "a@b.c"})

	s := &recordingSender{}
	New(s, "FlySpot", "http://x", zap.NewNop()).Sync().Send(Invite{})
	if len(s.sent) != 0 {
		t.Error("empty recipient must not send")
	}
}
