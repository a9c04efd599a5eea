// internal/app/store/maps/mapstore.go
package mapstore

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/flyspot/internal/app/system/normalize"
	"github.com/dalemusser/flyspot/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TokenBytes is the random length of a public link token.
const TokenBytes = 16

var (
	ErrNotFound     = errors.New("map not found")
	ErrNameRequired = errors.New("map name is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("maps")}
}

// NewPublicToken returns 16 random bytes, hex encoded.
func NewPublicToken() (string, error) {
	b := securecookie.GenerateRandomKey(TokenBytes)
	if b == nil {
		return "", errors.New("mapstore: random source failed")
	}
	return hex.EncodeToString(b), nil
}

func cleanIcon(icon string) string {
	icon = strings.TrimSpace(icon)
	if icon == "" {
		return models.DefaultMapIcon
	}
	return icon
}

// Create inserts a private map owned by ownerID.
func (s *Store) Create(ctx context.Context, ownerID primitive.ObjectID, name, icon string) (models.Map, error) {
	name = normalize.Name(name)
	if name == "" {
		return models.Map{}, ErrNameRequired
	}
	now := time.Now().UTC()
	m := models.Map{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Icon:      cleanIcon(icon),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Map{}, err
	}
	return m, nil
}

// Get loads a map by id.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.Map, error) {
	var m models.Map
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Map{}, ErrNotFound
		}
		return models.Map{}, err
	}
	return m, nil
}

// GetByPublicToken resolves an enabled public link. A disabled link does
// not resolve even when the token matches.
func (s *Store) GetByPublicToken(ctx context.Context, token string) (models.Map, error) {
	if token == "" {
		return models.Map{}, ErrNotFound
	}
	var m models.Map
	err := s.c.FindOne(ctx, bson.M{"public_token": token, "link_public": true}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Map{}, ErrNotFound
	}
	return m, err
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Map, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Map
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByOwner returns a user's own maps, most recently updated first.
func (s *Store) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Map, error) {
	return s.find(ctx, bson.M{"owner_id": ownerID})
}

// ListByIDs returns the maps with the given ids, most recently updated first.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Map, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// OwnedIDs returns the ids of every map ownerID owns.
func (s *Store) OwnedIDs(ctx context.Context, ownerID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"owner_id": ownerID}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	return ids, cur.Err()
}

// Update renames a map and sets its icon.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, name, icon string) (models.Map, error) {
	name = normalize.Name(name)
	if name == "" {
		return models.Map{}, ErrNameRequired
	}
	return s.apply(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"name": name, "icon": cleanIcon(icon)}})
}

// EnablePublic turns the public link on, issuing a token only if the map
// has never had one.
func (s *Store) EnablePublic(ctx context.Context, id primitive.ObjectID) (models.Map, error) {
	for attempt := 0; attempt < 3; attempt++ {
		token, err := NewPublicToken()
		if err != nil {
			return models.Map{}, err
		}
		_, err = s.c.UpdateOne(ctx,
			bson.M{"_id": id, "$or": bson.A{
				bson.M{"public_token": bson.M{"$exists": false}},
				bson.M{"public_token": ""},
			}},
			bson.M{"$set": bson.M{"public_token": token}},
		)
		if wafflemongo.IsDup(err) {
			continue
		}
		if err != nil {
			return models.Map{}, err
		}
		return s.apply(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"link_public": true}})
	}
	return models.Map{}, errors.New("mapstore: could not issue a unique token")
}

// DisablePublic turns the public link off. The token is kept so that
// enabling again restores the same URL.
func (s *Store) DisablePublic(ctx context.Context, id primitive.ObjectID) (models.Map, error) {
	return s.apply(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"link_public": false}})
}

// RotateToken replaces the token and leaves the link enabled. The old
// token stops resolving immediately.
func (s *Store) RotateToken(ctx context.Context, id primitive.ObjectID) (models.Map, error) {
	for attempt := 0; attempt < 3; attempt++ {
		token, err := NewPublicToken()
		if err != nil {
			return models.Map{}, err
		}
		m, err := s.apply(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"public_token": token, "link_public": true}})
		if wafflemongo.IsDup(err) {
			continue
		}
		return m, err
	}
	return models.Map{}, errors.New("mapstore: could not issue a unique token")
}

// Touch bumps updated_at, e.g. after spots change.
func (s *Store) Touch(ctx context.Context, ids ...primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.c.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}})
	return err
}

func (s *Store) apply(ctx context.Context, filter, update bson.M) (models.Map, error) {
	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
		update["$set"] = set
	}
	set["updated_at"] = time.Now().UTC()

	var m models.Map
	err := s.c.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Map{}, ErrNotFound
	}
	return m, err
}
