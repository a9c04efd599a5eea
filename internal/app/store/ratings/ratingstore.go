// internal/app/store/ratings/ratingstore.go
package ratingstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrOutOfRange = errors.New("rating must be between 1 and 5")

// Summary is the aggregate rating of a spot.
type Summary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("spot_ratings")}
}

// Upsert records userID's rating of spotID, replacing any earlier value.
func (s *Store) Upsert(ctx context.Context, spotID, userID primitive.ObjectID, value int) error {
	if value < models.MinRating || value > models.MaxRating {
		return ErrOutOfRange
	}
	now := time.Now().UTC()
	_, err := s.c.UpdateOne(ctx,
		bson.M{"spot_id": spotID, "user_id": userID},
		bson.M{
			"$set":         bson.M{"value": value, "updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// Get returns userID's rating of spotID, or 0 when there is none.
func (s *Store) Get(ctx context.Context, spotID, userID primitive.ObjectID) (int, error) {
	var r models.SpotRating
	err := s.c.FindOne(ctx, bson.M{"spot_id": spotID, "user_id": userID}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return r.Value, nil
}

// Summaries returns average and count per spot. Spots without ratings
// are absent from the map.
func (s *Store) Summaries(ctx context.Context, spotIDs []primitive.ObjectID) (map[primitive.ObjectID]Summary, error) {
	out := make(map[primitive.ObjectID]Summary, len(spotIDs))
	if len(spotIDs) == 0 {
		return out, nil
	}
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"spot_id": bson.M{"$in": spotIDs}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$spot_id",
			"avg":   bson.M{"$avg": "$value"},
			"count": bson.M{"$sum": 1},
		}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var row struct {
			SpotID primitive.ObjectID `bson:"_id"`
			Avg    float64            `bson:"avg"`
			Count  int                `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.SpotID] = Summary{Average: row.Avg, Count: row.Count}
	}
	return out, cur.Err()
}

// Summary returns the aggregate rating of one spot.
func (s *Store) Summary(ctx context.Context, spotID primitive.ObjectID) (Summary, error) {
	all, err := s.Summaries(ctx, []primitive.ObjectID{spotID})
	if err != nil {
		return Summary{}, err
	}
	return all[spotID], nil
}
