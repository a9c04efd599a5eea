// internal/app/system/events/notifier.go
package events

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AudienceResolver lists the user ids that can see a map: its owner and
// every invitee that has a user id.
type AudienceResolver interface {
	MapAudience(ctx context.Context, mapID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// Notifier turns map changes into events. Failures are logged and never
// reach the caller; the change itself has already been committed.
type Notifier struct {
	bus      Bus
	audience AudienceResolver
	log      *zap.Logger
}

func NewNotifier(bus Bus, audience AudienceResolver, log *zap.Logger) *Notifier {
	return &Notifier{bus: bus, audience: audience, log: log}
}

// MapChanged notifies everyone who can see mapID. extra adds users that
// must hear about it even if they no longer can (a removed invitee).
func (n *Notifier) MapChanged(ctx context.Context, kind string, mapID primitive.ObjectID, extra ...primitive.ObjectID) {
	if n == nil {
		return
	}
	ids, err := n.audience.MapAudience(ctx, mapID)
	if err != nil {
		n.log.Warn("resolve map audience failed", zap.String("map_id", mapID.Hex()), zap.Error(err))
	}
	n.publish(ctx, Event{Kind: kind, MapID: mapID.Hex(), UserIDs: uniqueHex(append(ids, extra...))})
}

// MapsChanged notifies the audience of each map in one event per map.
func (n *Notifier) MapsChanged(ctx context.Context, kind string, mapIDs []primitive.ObjectID) {
	for _, id := range mapIDs {
		n.MapChanged(ctx, kind, id)
	}
}

// Users notifies specific users, used when the map itself is gone.
func (n *Notifier) Users(ctx context.Context, kind string, mapID primitive.ObjectID, users []primitive.ObjectID) {
	if n == nil {
		return
	}
	n.publish(ctx, Event{Kind: kind, MapID: mapID.Hex(), UserIDs: uniqueHex(users)})
}

// Audience exposes the resolver so callers can capture a map's audience
// before deleting it.
func (n *Notifier) Audience(ctx context.Context, mapID primitive.ObjectID) []primitive.ObjectID {
	if n == nil {
		return nil
	}
	ids, err := n.audience.MapAudience(ctx, mapID)
	if err != nil {
		n.log.Warn("resolve map audience failed", zap.String("map_id", mapID.Hex()), zap.Error(err))
	}
	return ids
}

func (n *Notifier) publish(ctx context.Context, ev Event) {
	if len(ev.UserIDs) == 0 {
		return
	}
	if err := n.bus.Publish(ctx, ev); err != nil {
		n.log.Warn("publish map event failed", zap.String("kind", ev.Kind), zap.String("map_id", ev.MapID), zap.Error(err))
	}
}

func uniqueHex(ids []primitive.ObjectID) []string {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id.Hex())
	}
	return out
}
