// internal/app/policy/access/facts.go
package access

import (
	"context"
	"errors"

	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrMapNotFound is returned when a map id does not resolve.
var ErrMapNotFound = errors.New("map not found")

// Loader reads the facts Evaluate needs straight from the collections.
type Loader struct {
	maps     *mongo.Collection
	shares   *mongo.Collection
	spotMaps *mongo.Collection
}

func NewLoader(db *mongo.Database) *Loader {
	return &Loader{
		maps:     db.Collection("maps"),
		shares:   db.Collection("map_shares"),
		spotMaps: db.Collection("spot_maps"),
	}
}

// FactsFor builds MapFacts from an already loaded map.
func (l *Loader) FactsFor(ctx context.Context, actor Actor, m models.Map, token string) (MapFacts, error) {
	roles, err := l.shareRoles(ctx, actor, []primitive.ObjectID{m.ID})
	if err != nil {
		return MapFacts{}, err
	}
	return toFacts(m, roles[m.ID], token), nil
}

// Map loads one map and the actor's share role on it.
func (l *Loader) Map(ctx context.Context, actor Actor, mapID primitive.ObjectID, token string) (models.Map, MapFacts, error) {
	var m models.Map
	if err := l.maps.FindOne(ctx, bson.M{"_id": mapID}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Map{}, MapFacts{}, ErrMapNotFound
		}
		return models.Map{}, MapFacts{}, err
	}
	f, err := l.FactsFor(ctx, actor, m, token)
	return m, f, err
}

// Maps loads facts for every id. Any id that does not resolve yields
// ErrMapNotFound. Duplicates are collapsed; order follows ids.
func (l *Loader) Maps(ctx context.Context, actor Actor, ids []primitive.ObjectID) ([]MapFacts, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := l.maps.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var found []models.Map
	if err := cur.All(ctx, &found); err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		return nil, ErrMapNotFound
	}
	roles, err := l.shareRoles(ctx, actor, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.Map, len(found))
	for _, m := range found {
		byID[m.ID] = m
	}
	out := make([]MapFacts, 0, len(ids))
	for _, id := range ids {
		out = append(out, toFacts(byID[id], roles[id], ""))
	}
	return out, nil
}

// Lookup loads whichever of ids still exist, with the actor's facts for
// each. Missing ids are skipped rather than failing the batch.
func (l *Loader) Lookup(ctx context.Context, actor Actor, ids []primitive.ObjectID, token string) (map[primitive.ObjectID]models.Map, map[primitive.ObjectID]MapFacts, error) {
	ids = dedupe(ids)
	maps := make(map[primitive.ObjectID]models.Map, len(ids))
	facts := make(map[primitive.ObjectID]MapFacts, len(ids))
	if len(ids) == 0 {
		return maps, facts, nil
	}
	cur, err := l.maps.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, nil, err
	}
	var found []models.Map
	if err := cur.All(ctx, &found); err != nil {
		return nil, nil, err
	}
	roles, err := l.shareRoles(ctx, actor, ids)
	if err != nil {
		return nil, nil, err
	}
	for _, m := range found {
		maps[m.ID] = m
		facts[m.ID] = toFacts(m, roles[m.ID], token)
	}
	return maps, facts, nil
}

// Spot gathers the facts for s: its primary map plus all spot_maps
// associations. token is passed through to every map (public map view).
func (l *Loader) Spot(ctx context.Context, actor Actor, s models.Spot, token string) (SpotFacts, error) {
	ids, err := l.SpotMapIDs(ctx, s)
	if err != nil {
		return SpotFacts{}, err
	}
	facts := SpotFacts{OwnerID: s.OwnerID, Visibility: s.Visibility, PrimaryMapID: s.MapID}
	if len(ids) == 0 {
		return facts, nil
	}

	cur, err := l.maps.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return SpotFacts{}, err
	}
	var maps []models.Map
	if err := cur.All(ctx, &maps); err != nil {
		return SpotFacts{}, err
	}
	roles, err := l.shareRoles(ctx, actor, ids)
	if err != nil {
		return SpotFacts{}, err
	}
	for _, m := range maps {
		facts.Maps = append(facts.Maps, toFacts(m, roles[m.ID], token))
	}
	return facts, nil
}

// SpotMapIDs is the primary map followed by every joined map, deduplicated.
func (l *Loader) SpotMapIDs(ctx context.Context, s models.Spot) ([]primitive.ObjectID, error) {
	var ids []primitive.ObjectID
	if s.MapID != nil {
		ids = append(ids, *s.MapID)
	}
	cur, err := l.spotMaps.Find(ctx, bson.M{"spot_id": s.ID},
		options.Find().SetProjection(bson.M{"map_id": 1, "_id": 0}))
	if err != nil {
		return nil, err
	}
	var rows []models.SpotMap
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, r := range rows {
		ids = append(ids, r.MapID)
	}
	return dedupe(ids), nil
}

// shareRoles returns the actor's strongest share role per map, matching
// shares by user id or by invited email.
func (l *Loader) shareRoles(ctx context.Context, actor Actor, mapIDs []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := map[primitive.ObjectID]string{}
	if actor.Anonymous() || len(mapIDs) == 0 {
		return out, nil
	}
	who := bson.A{bson.M{"invited_user_id": actor.UserID}}
	if actor.Email != "" {
		who = append(who, bson.M{"invited_email": actor.Email})
	}
	cur, err := l.shares.Find(ctx, bson.M{
		"map_id": bson.M{"$in": mapIDs},
		"$or":    who,
	}, options.Find().SetProjection(bson.M{"map_id": 1, "role": 1}))
	if err != nil {
		return nil, err
	}
	var rows []models.MapShare
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if out[r.MapID] != models.ShareWrite {
			out[r.MapID] = r.Role
		}
	}
	return out, nil
}

func toFacts(m models.Map, role, token string) MapFacts {
	return MapFacts{
		ID:             m.ID,
		OwnerID:        m.OwnerID,
		LinkPublic:     m.LinkPublic,
		PublicToken:    m.PublicToken,
		ShareRole:      role,
		PresentedToken: token,
	}
}

func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
