// internal/app/store/tags/tagstore.go
package tagstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/flyspot/internal/app/system/normalize"
	"github.com/dalemusser/flyspot/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound     = errors.New("tag not found")
	ErrNameRequired = errors.New("tag name is required")
)

// UnknownTagError names a tag that does not exist.
type UnknownTagError struct{ Name string }

func (e *UnknownTagError) Error() string { return fmt.Sprintf("unknown tag %q", e.Name) }

type Store struct {
	c     *mongo.Collection
	spots *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tags"), spots: db.Collection("spots")}
}

// Upsert returns the tag with this name (case-insensitive), creating it
// when missing.
func (s *Store) Upsert(ctx context.Context, name string) (models.Tag, bool, error) {
	name = normalize.TagName(name)
	if name == "" {
		return models.Tag{}, false, ErrNameRequired
	}
	ci := normalize.NameCI(name)
	res, err := s.c.UpdateOne(ctx,
		bson.M{"name_ci": ci},
		bson.M{"$setOnInsert": bson.M{"name": name, "name_ci": ci}},
		options.Update().SetUpsert(true),
	)
	if err != nil && !wafflemongo.IsDup(err) {
		return models.Tag{}, false, err
	}
	var t models.Tag
	if err := s.c.FindOne(ctx, bson.M{"name_ci": ci}).Decode(&t); err != nil {
		return models.Tag{}, false, err
	}
	return t, res != nil && res.UpsertedCount == 1, nil
}

// List returns every tag by name.
func (s *Store) List(ctx context.Context) ([]models.Tag, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Tag
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ByIDs returns the tags with the given ids, by name.
func (s *Store) ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Tag
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveNames maps existing tag names to ids, keeping the given order.
// A name with no tag yields *UnknownTagError.
func (s *Store) ResolveNames(ctx context.Context, names []string) ([]primitive.ObjectID, error) {
	if len(names) == 0 {
		return nil, nil
	}
	cis := make([]string, 0, len(names))
	for _, n := range names {
		cis = append(cis, normalize.NameCI(normalize.TagName(n)))
	}
	cur, err := s.c.Find(ctx, bson.M{"name_ci": bson.M{"$in": cis}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var found []models.Tag
	if err := cur.All(ctx, &found); err != nil {
		return nil, err
	}
	byCI := make(map[string]primitive.ObjectID, len(found))
	for _, t := range found {
		byCI[t.NameCI] = t.ID
	}

	seen := make(map[primitive.ObjectID]bool, len(cis))
	ids := make([]primitive.ObjectID, 0, len(cis))
	for i, ci := range cis {
		id, ok := byCI[ci]
		if !ok {
			return nil, &UnknownTagError{Name: names[i]}
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Delete removes a tag and pulls it from every spot. Run it in txn.Run
// so both writes land together.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	_, err = s.spots.UpdateMany(ctx, bson.M{"tag_ids": id}, bson.M{"$pull": bson.M{"tag_ids": id}})
	return err
}
