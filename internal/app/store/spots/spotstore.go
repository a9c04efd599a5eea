// internal/app/store/spots/spotstore.go
package spotstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/flyspot/internal/app/system/paging"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("spot not found")

// Store covers spots and their spot_maps join rows. Methods that touch
// both collections should run inside txn.Run; they take the session
// context it provides.
type Store struct {
	c     *mongo.Collection
	links *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("spots"), links: db.Collection("spot_maps")}
}

func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Create inserts s linked to mapIDs. The first map becomes the primary
// map and every map gets a spot_maps row. No maps means a public spot.
func (s *Store) Create(ctx context.Context, sp models.Spot, mapIDs []primitive.ObjectID) (models.Spot, error) {
	mapIDs = dedupe(mapIDs)
	now := time.Now().UTC()
	sp.ID = primitive.NewObjectID()
	sp.MapID = nil
	if len(mapIDs) > 0 {
		primary := mapIDs[0]
		sp.MapID = &primary
	}
	sp.Visibility = models.VisibilityFor(sp.MapID, len(mapIDs))
	sp.CreatedAt = now
	sp.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, sp); err != nil {
		return models.Spot{}, err
	}
	if err := s.insertLinks(ctx, sp.ID, mapIDs, now); err != nil {
		return models.Spot{}, err
	}
	return sp, nil
}

func (s *Store) insertLinks(ctx context.Context, spotID primitive.ObjectID, mapIDs []primitive.ObjectID, now time.Time) error {
	if len(mapIDs) == 0 {
		return nil
	}
	docs := make([]any, 0, len(mapIDs))
	for _, m := range mapIDs {
		docs = append(docs, models.SpotMap{SpotID: spotID, MapID: m, CreatedAt: now})
	}
	_, err := s.links.InsertMany(ctx, docs)
	return err
}

// Get loads a spot by id.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.Spot, error) {
	var sp models.Spot
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Spot{}, ErrNotFound
		}
		return models.Spot{}, err
	}
	return sp, nil
}

// Fields are the editable attributes of a spot.
type Fields struct {
	Title       string
	Description string
	TagIDs      []primitive.ObjectID
}

// UpdateFields replaces title, description and tags.
func (s *Store) UpdateFields(ctx context.Context, id primitive.ObjectID, f Fields) error {
	tags := f.TagIDs
	if tags == nil {
		tags = []primitive.ObjectID{}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"title":       f.Title,
		"description": f.Description,
		"tag_ids":     tags,
		"updated_at":  time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MapIDs returns the primary map and every linked map of a spot.
func (s *Store) MapIDs(ctx context.Context, sp models.Spot) ([]primitive.ObjectID, error) {
	var ids []primitive.ObjectID
	if sp.MapID != nil {
		ids = append(ids, *sp.MapID)
	}
	cur, err := s.links.Find(ctx, bson.M{"spot_id": sp.ID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var l models.SpotMap
		if err := cur.Decode(&l); err != nil {
			return nil, err
		}
		ids = append(ids, l.MapID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return dedupe(ids), nil
}

// MapIDsBySpot returns, for each spot, its primary and linked map ids.
func (s *Store) MapIDsBySpot(ctx context.Context, spots []models.Spot) (map[primitive.ObjectID][]primitive.ObjectID, error) {
	out := make(map[primitive.ObjectID][]primitive.ObjectID, len(spots))
	if len(spots) == 0 {
		return out, nil
	}
	ids := make([]primitive.ObjectID, 0, len(spots))
	for _, sp := range spots {
		ids = append(ids, sp.ID)
		if sp.MapID != nil {
			out[sp.ID] = append(out[sp.ID], *sp.MapID)
		}
	}
	cur, err := s.links.Find(ctx, bson.M{"spot_id": bson.M{"$in": ids}}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var l models.SpotMap
		if err := cur.Decode(&l); err != nil {
			return nil, err
		}
		out[l.SpotID] = append(out[l.SpotID], l.MapID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	for k, v := range out {
		out[k] = dedupe(v)
	}
	return out, nil
}

// SetMaps replaces the association set of a spot. The first map becomes
// primary; an empty set makes the spot public again.
func (s *Store) SetMaps(ctx context.Context, id primitive.ObjectID, mapIDs []primitive.ObjectID) error {
	mapIDs = dedupe(mapIDs)
	now := time.Now().UTC()
	if _, err := s.links.DeleteMany(ctx, bson.M{"spot_id": id}); err != nil {
		return err
	}
	if err := s.insertLinks(ctx, id, mapIDs, now); err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"visibility": models.VisibilityFor(nil, len(mapIDs)),
		"updated_at": now,
	}}
	if len(mapIDs) > 0 {
		update["$set"].(bson.M)["map_id"] = mapIDs[0]
	} else {
		update["$unset"] = bson.M{"map_id": ""}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RecomputeVisibility sets visibility on each spot from its current
// primary map and spot_maps rows.
func (s *Store) RecomputeVisibility(ctx context.Context, ids []primitive.ObjectID) error {
	for _, id := range dedupe(ids) {
		var sp models.Spot
		err := s.c.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"map_id": 1})).Decode(&sp)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return err
		}
		linked, err := s.links.CountDocuments(ctx, bson.M{"spot_id": id})
		if err != nil {
			return err
		}
		vis := models.VisibilityFor(sp.MapID, int(linked))
		if _, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"visibility": vis}}); err != nil {
			return err
		}
	}
	return nil
}

// ListFilter narrows a listing.
type ListFilter struct {
	TagID *primitive.ObjectID
	Page  paging.Page
}

func (s *Store) list(ctx context.Context, base bson.M, f ListFilter) ([]models.Spot, bool, error) {
	if f.TagID != nil {
		base["tag_ids"] = *f.TagID
	}
	cur, err := s.c.Find(ctx, f.Page.Filter(base), f.Page.FindOptions())
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)
	var out []models.Spot
	if err := cur.All(ctx, &out); err != nil {
		return nil, false, err
	}
	more := paging.Trim(f.Page, &out)
	return out, more, nil
}

// ListPublic returns spots with no map association, newest first.
func (s *Store) ListPublic(ctx context.Context, f ListFilter) ([]models.Spot, bool, error) {
	return s.list(ctx, bson.M{"visibility": models.VisibilityPublic}, f)
}

// ListByOwner returns a user's spots, newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID primitive.ObjectID, f ListFilter) ([]models.Spot, bool, error) {
	return s.list(ctx, bson.M{"owner_id": ownerID}, f)
}

// ListAll returns every spot, newest first.
func (s *Store) ListAll(ctx context.Context, f ListFilter) ([]models.Spot, bool, error) {
	return s.list(ctx, bson.M{}, f)
}

// ListByMap returns spots whose primary map is mapID or that are linked
// to it, newest first.
func (s *Store) ListByMap(ctx context.Context, mapID primitive.ObjectID) ([]models.Spot, error) {
	linked, err := s.links.Distinct(ctx, "spot_id", bson.M{"map_id": mapID})
	if err != nil {
		return nil, err
	}
	if linked == nil {
		linked = bson.A{}
	}
	cur, err := s.c.Find(ctx,
		bson.M{"$or": bson.A{bson.M{"map_id": mapID}, bson.M{"_id": bson.M{"$in": linked}}}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Spot
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of spots.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
