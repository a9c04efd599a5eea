// internal/app/store/queries/audience/audience.go

// Package audience answers who should hear about a change to a map.
package audience

import (
	"context"
	"errors"

	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Resolver implements events.AudienceResolver over the maps and
// map_shares collections.
type Resolver struct {
	maps   *mongo.Collection
	shares *mongo.Collection
}

func New(db *mongo.Database) *Resolver {
	return &Resolver{maps: db.Collection("maps"), shares: db.Collection("map_shares")}
}

// MapAudience returns the owner of mapID followed by every invitee that
// has claimed its share. Pending email-only shares have no one to notify.
// A map that no longer exists has no audience.
func (r *Resolver) MapAudience(ctx context.Context, mapID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var m models.Map
	err := r.maps.FindOne(ctx, bson.M{"_id": mapID}, options.FindOne().SetProjection(bson.M{"owner_id": 1})).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := []primitive.ObjectID{m.OwnerID}
	raw, err := r.shares.Distinct(ctx, "invited_user_id", bson.M{
		"map_id":          mapID,
		"invited_user_id": bson.M{"$type": "objectId"},
	})
	if err != nil {
		return nil, err
	}
	for _, v := range raw {
		if id, ok := v.(primitive.ObjectID); ok && id != m.OwnerID {
			out = append(out, id)
		}
	}
	return out, nil
}
