// internal/app/store/queries/cascade/cascade.go

// Package cascade holds the deletes that span several collections. Each
// runs in one transaction and returns the object-storage keys of the
// images it removed; callers delete those files after the commit.
package cascade

import (
	"context"
	"errors"

	mapstore "github.com/dalemusser/flyspot/internal/app/store/maps"
	spotimagestore "github.com/dalemusser/flyspot/internal/app/store/spotimages"
	spotstore "github.com/dalemusser/flyspot/internal/app/store/spots"
	userstore "github.com/dalemusser/flyspot/internal/app/store/users"
	"github.com/dalemusser/flyspot/internal/app/system/txn"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Result reports what a cascade removed.
type Result struct {
	ImageKeys     []string
	DeletedSpots  []primitive.ObjectID
	DetachedSpots []primitive.ObjectID
	DeletedMaps   []primitive.ObjectID
}

func (r *Result) merge(o Result) {
	r.ImageKeys = append(r.ImageKeys, o.ImageKeys...)
	r.DeletedSpots = append(r.DeletedSpots, o.DeletedSpots...)
	r.DetachedSpots = append(r.DetachedSpots, o.DetachedSpots...)
	r.DeletedMaps = append(r.DeletedMaps, o.DeletedMaps...)
}

// DeleteMap removes a map, its shares and its spot associations. Spots
// left with no map and owned by actorID are deleted with their images,
// ratings and join rows; every other touched spot is only detached.
func DeleteMap(ctx context.Context, db *mongo.Database, log *zap.Logger, mapID, actorID primitive.ObjectID) (Result, error) {
	var res Result
	err := txn.Run(ctx, db, log, func(ctx context.Context) error {
		r, err := deleteMap(ctx, db, mapID, actorID)
		res = r
		return err
	})
	return res, err
}

// DeleteSpot removes a spot with its images, ratings and map associations.
func DeleteSpot(ctx context.Context, db *mongo.Database, log *zap.Logger, spotID primitive.ObjectID) (Result, error) {
	var res Result
	err := txn.Run(ctx, db, log, func(ctx context.Context) error {
		n, err := db.Collection("spots").CountDocuments(ctx, bson.M{"_id": spotID})
		if err != nil {
			return err
		}
		if n == 0 {
			return spotstore.ErrNotFound
		}
		keys, err := deleteSpots(ctx, db, []primitive.ObjectID{spotID})
		res = Result{ImageKeys: keys, DeletedSpots: []primitive.ObjectID{spotID}}
		return err
	})
	return res, err
}

// DeleteUser removes an account and everything it owns: its maps (by the
// same rules as DeleteMap), its remaining spots, its ratings and every
// share that resolves to it. The avatar key, if any, is returned with the
// image keys.
func DeleteUser(ctx context.Context, db *mongo.Database, log *zap.Logger, userID primitive.ObjectID) (Result, error) {
	var res Result
	err := txn.Run(ctx, db, log, func(ctx context.Context) error {
		res = Result{}
		var u models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&u); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return userstore.ErrNotFound
			}
			return err
		}

		mapIDs, err := mapstore.New(db).OwnedIDs(ctx, userID)
		if err != nil {
			return err
		}
		for _, id := range mapIDs {
			r, err := deleteMap(ctx, db, id, userID)
			if err != nil {
				return err
			}
			res.merge(r)
		}

		spotIDs, err := distinctIDs(ctx, db.Collection("spots"), "_id", bson.M{"owner_id": userID})
		if err != nil {
			return err
		}
		keys, err := deleteSpots(ctx, db, spotIDs)
		if err != nil {
			return err
		}
		res.ImageKeys = append(res.ImageKeys, keys...)
		res.DeletedSpots = append(res.DeletedSpots, spotIDs...)

		if _, err := db.Collection("spot_ratings").DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
			return err
		}
		who := bson.A{bson.M{"invited_user_id": userID}}
		if u.Email != "" {
			who = append(who, bson.M{"invited_email": u.Email})
		}
		if _, err := db.Collection("map_shares").DeleteMany(ctx, bson.M{"$or": who}); err != nil {
			return err
		}
		if _, err := db.Collection("auth_tokens").DeleteMany(ctx, bson.M{"email": u.Email}); err != nil {
			return err
		}
		if _, err := db.Collection("users").DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
			return err
		}
		if u.AvatarKey != "" {
			res.ImageKeys = append(res.ImageKeys, u.AvatarKey)
		}
		return nil
	})
	return res, err
}

func deleteMap(ctx context.Context, db *mongo.Database, mapID, actorID primitive.ObjectID) (Result, error) {
	var res Result
	maps := db.Collection("maps")
	spots := db.Collection("spots")
	links := db.Collection("spot_maps")

	n, err := maps.CountDocuments(ctx, bson.M{"_id": mapID})
	if err != nil {
		return res, err
	}
	if n == 0 {
		return res, mapstore.ErrNotFound
	}

	if _, err := db.Collection("map_shares").DeleteMany(ctx, bson.M{"map_id": mapID}); err != nil {
		return res, err
	}

	linked, err := distinctIDs(ctx, links, "spot_id", bson.M{"map_id": mapID})
	if err != nil {
		return res, err
	}
	primary, err := distinctIDs(ctx, spots, "_id", bson.M{"map_id": mapID})
	if err != nil {
		return res, err
	}
	touched := union(linked, primary)

	if _, err := links.DeleteMany(ctx, bson.M{"map_id": mapID}); err != nil {
		return res, err
	}
	if len(primary) > 0 {
		if _, err := spots.UpdateMany(ctx, bson.M{"map_id": mapID}, bson.M{"$unset": bson.M{"map_id": ""}}); err != nil {
			return res, err
		}
	}
	if err := spotstore.New(db).RecomputeVisibility(ctx, touched); err != nil {
		return res, err
	}

	var orphans []primitive.ObjectID
	if len(touched) > 0 {
		stillLinked, err := distinctIDs(ctx, links, "spot_id", bson.M{"spot_id": bson.M{"$in": touched}})
		if err != nil {
			return res, err
		}
		candidates, err := distinctIDs(ctx, spots, "_id", bson.M{
			"_id":      bson.M{"$in": touched},
			"owner_id": actorID,
			"map_id":   nil,
		})
		if err != nil {
			return res, err
		}
		keep := make(map[primitive.ObjectID]bool, len(stillLinked))
		for _, id := range stillLinked {
			keep[id] = true
		}
		for _, id := range candidates {
			if !keep[id] {
				orphans = append(orphans, id)
			}
		}
	}

	keys, err := deleteSpots(ctx, db, orphans)
	if err != nil {
		return res, err
	}
	if _, err := maps.DeleteOne(ctx, bson.M{"_id": mapID}); err != nil {
		return res, err
	}

	gone := make(map[primitive.ObjectID]bool, len(orphans))
	for _, id := range orphans {
		gone[id] = true
	}
	for _, id := range touched {
		if !gone[id] {
			res.DetachedSpots = append(res.DetachedSpots, id)
		}
	}
	res.ImageKeys = keys
	res.DeletedSpots = orphans
	res.DeletedMaps = []primitive.ObjectID{mapID}
	return res, nil
}

func deleteSpots(ctx context.Context, db *mongo.Database, ids []primitive.ObjectID) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys, err := spotimagestore.New(db).DeleteBySpots(ctx, ids)
	if err != nil {
		return nil, err
	}
	in := bson.M{"$in": ids}
	if _, err := db.Collection("spot_ratings").DeleteMany(ctx, bson.M{"spot_id": in}); err != nil {
		return nil, err
	}
	if _, err := db.Collection("spot_maps").DeleteMany(ctx, bson.M{"spot_id": in}); err != nil {
		return nil, err
	}
	if _, err := db.Collection("spots").DeleteMany(ctx, bson.M{"_id": in}); err != nil {
		return nil, err
	}
	return keys, nil
}

func distinctIDs(ctx context.Context, c *mongo.Collection, field string, filter bson.M) ([]primitive.ObjectID, error) {
	raw, err := c.Distinct(ctx, field, filter)
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(primitive.ObjectID); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func union(a, b []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(a)+len(b))
	out := make([]primitive.ObjectID, 0, len(a)+len(b))
	for _, list := range [][]primitive.ObjectID{a, b} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
