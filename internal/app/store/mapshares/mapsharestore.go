// internal/app/store/mapshares/mapsharestore.go
package mapsharestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/flyspot/internal/app/system/normalize"
	"github.com/dalemusser/flyspot/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound      = errors.New("share not found")
	ErrEmailRequired = errors.New("invitee email is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("map_shares")}
}

// forUser matches shares that resolve to the user by id or by email.
func forUser(userID primitive.ObjectID, email string) bson.M {
	or := bson.A{bson.M{"invited_user_id": userID}}
	if email = normalize.Email(email); email != "" {
		or = append(or, bson.M{"invited_email": email})
	}
	return bson.M{"$or": or}
}

// Upsert grants role on mapID to email, creating the row or changing the
// role of an existing one. userID is recorded when the invitee already has
// an account. created reports whether a new row was inserted.
func (s *Store) Upsert(ctx context.Context, mapID primitive.ObjectID, email string, userID *primitive.ObjectID, role string) (share models.MapShare, created bool, err error) {
	email = normalize.Email(email)
	if email == "" {
		return models.MapShare{}, false, ErrEmailRequired
	}
	now := time.Now().UTC()
	set := bson.M{"role": models.NormalizeShareRole(role), "updated_at": now}
	if userID != nil {
		set["invited_user_id"] = *userID
	}
	filter := bson.M{"map_id": mapID, "invited_email": email}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}
	res, err := s.c.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if wafflemongo.IsDup(err) {
		// A concurrent grant inserted the row first; this pass updates it.
		res, err = s.c.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	}
	if err != nil {
		return models.MapShare{}, false, err
	}
	if err := s.c.FindOne(ctx, filter).Decode(&share); err != nil {
		return models.MapShare{}, false, err
	}
	return share, res.UpsertedCount == 1, nil
}

// Get loads one share of mapID.
func (s *Store) Get(ctx context.Context, mapID, shareID primitive.ObjectID) (models.MapShare, error) {
	var sh models.MapShare
	err := s.c.FindOne(ctx, bson.M{"_id": shareID, "map_id": mapID}).Decode(&sh)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.MapShare{}, ErrNotFound
	}
	return sh, err
}

// UpdateRole changes the role of one share of mapID.
func (s *Store) UpdateRole(ctx context.Context, mapID, shareID primitive.ObjectID, role string) (models.MapShare, error) {
	var sh models.MapShare
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": shareID, "map_id": mapID},
		bson.M{"$set": bson.M{"role": models.NormalizeShareRole(role), "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&sh)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.MapShare{}, ErrNotFound
	}
	return sh, err
}

// Remove deletes one share of mapID and returns it.
func (s *Store) Remove(ctx context.Context, mapID, shareID primitive.ObjectID) (models.MapShare, error) {
	var sh models.MapShare
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": shareID, "map_id": mapID}).Decode(&sh)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.MapShare{}, ErrNotFound
	}
	return sh, err
}

// Leave removes every share of mapID that resolves to the user.
func (s *Store) Leave(ctx context.Context, mapID, userID primitive.ObjectID, email string) (int64, error) {
	filter := forUser(userID, email)
	filter["map_id"] = mapID
	res, err := s.c.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByMap returns the shares of a map in the order they were granted.
func (s *Store) ListByMap(ctx context.Context, mapID primitive.ObjectID) ([]models.MapShare, error) {
	return s.find(ctx, bson.M{"map_id": mapID})
}

// ListForUser returns every share that resolves to the user.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID, email string) ([]models.MapShare, error) {
	return s.find(ctx, forUser(userID, email))
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.MapShare, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.MapShare
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimByEmail points every share for email at userID. Called when an
// account is created with, or changed to, that email.
func (s *Store) ClaimByEmail(ctx context.Context, userID primitive.ObjectID, email string) (int64, error) {
	email = normalize.Email(email)
	if email == "" {
		return 0, nil
	}
	res, err := s.c.UpdateMany(ctx,
		bson.M{"invited_email": email},
		bson.M{"$set": bson.M{"invited_user_id": userID, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// UserIDs returns the account ids of a map's invitees. Pending invites
// (no account yet) are skipped.
func (s *Store) UserIDs(ctx context.Context, mapID primitive.ObjectID) ([]primitive.ObjectID, error) {
	vals, err := s.c.Distinct(ctx, "invited_user_id", bson.M{"map_id": mapID, "invited_user_id": bson.M{"$ne": nil}})
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(vals))
	for _, v := range vals {
		if id, ok := v.(primitive.ObjectID); ok {
			out = append(out, id)
		}
	}
	return out, nil
}
