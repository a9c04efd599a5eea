// internal/app/store/spotimages/spotimagestore.go
package spotimagestore

import (
	"context"
	"time"

	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewImage is a stored object to attach to a spot.
type NewImage struct {
	URL string
	Key string
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("spot_images")}
}

// Add attaches images in the given order. Each row gets a distinct
// created_at so the first image stays the primary one.
func (s *Store) Add(ctx context.Context, spotID primitive.ObjectID, imgs []NewImage) ([]models.SpotImage, error) {
	if len(imgs) == 0 {
		return nil, nil
	}
	base := time.Now().UTC().Truncate(time.Millisecond)
	out := make([]models.SpotImage, 0, len(imgs))
	docs := make([]any, 0, len(imgs))
	for i, img := range imgs {
		row := models.SpotImage{
			ID:        primitive.NewObjectID(),
			SpotID:    spotID,
			URL:       img.URL,
			Key:       img.Key,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}
		out = append(out, row)
		docs = append(docs, row)
	}
	if _, err := s.c.InsertMany(ctx, docs); err != nil {
		return nil, err
	}
	return out, nil
}

var oldestFirst = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

// ListBySpot returns a spot's images, primary first.
func (s *Store) ListBySpot(ctx context.Context, spotID primitive.ObjectID) ([]models.SpotImage, error) {
	cur, err := s.c.Find(ctx, bson.M{"spot_id": spotID}, options.Find().SetSort(oldestFirst))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.SpotImage
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Primary returns the earliest image of each spot that has one.
func (s *Store) Primary(ctx context.Context, spotIDs []primitive.ObjectID) (map[primitive.ObjectID]models.SpotImage, error) {
	out := make(map[primitive.ObjectID]models.SpotImage, len(spotIDs))
	if len(spotIDs) == 0 {
		return out, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"spot_id": bson.M{"$in": spotIDs}}}},
		{{Key: "$sort", Value: oldestFirst}},
		{{Key: "$group", Value: bson.M{"_id": "$spot_id", "first": bson.M{"$first": "$$ROOT"}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var row struct {
			First models.SpotImage `bson:"first"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.First.SpotID] = row.First
	}
	return out, cur.Err()
}

// CountRemaining returns how many images of spotID are not in excluding.
func (s *Store) CountRemaining(ctx context.Context, spotID primitive.ObjectID, excluding []primitive.ObjectID) (int64, error) {
	filter := bson.M{"spot_id": spotID}
	if len(excluding) > 0 {
		filter["_id"] = bson.M{"$nin": excluding}
	}
	return s.c.CountDocuments(ctx, filter)
}

// DeleteByIDs removes the listed images of spotID and returns their
// storage keys. Ids belonging to other spots are ignored.
func (s *Store) DeleteByIDs(ctx context.Context, spotID primitive.ObjectID, ids []primitive.ObjectID) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	filter := bson.M{"spot_id": spotID, "_id": bson.M{"$in": ids}}
	keys, err := s.keys(ctx, filter)
	if err != nil {
		return nil, err
	}
	if _, err := s.c.DeleteMany(ctx, filter); err != nil {
		return nil, err
	}
	return keys, nil
}

// DeleteBySpots removes every image of the spots and returns their keys.
func (s *Store) DeleteBySpots(ctx context.Context, spotIDs []primitive.ObjectID) ([]string, error) {
	if len(spotIDs) == 0 {
		return nil, nil
	}
	filter := bson.M{"spot_id": bson.M{"$in": spotIDs}}
	keys, err := s.keys(ctx, filter)
	if err != nil {
		return nil, err
	}
	if _, err := s.c.DeleteMany(ctx, filter); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) keys(ctx context.Context, filter bson.M) ([]string, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetProjection(bson.M{"key": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var keys []string
	for cur.Next(ctx) {
		var row struct {
			Key string `bson:"key"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		if row.Key != "" {
			keys = append(keys, row.Key)
		}
	}
	return keys, cur.Err()
}
