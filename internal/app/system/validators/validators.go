// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/flyspot/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and attaches JSON-Schema
// validators. Deployments without collMod validator support log and skip.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("maps", mapsSchema())
	ensure("map_shares", mapSharesSchema())
	ensure("spots", spotsSchema())
	ensure("spot_maps", spotMapsSchema())
	ensure("spot_images", spotImagesSchema())
	ensure("tags", tagsSchema())
	ensure("spot_ratings", spotRatingsSchema())
	ensure("audit_events", auditEventsSchema())

	// token collections are short-lived and need no validator
	ensure("auth_tokens", nil)
	ensure("oauth_states", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "name", "role", "created_at"},
			"properties": bson.M{
				"email":             nonBlank,
				"name":              nonBlank,
				"name_ci":           bson.M{"bsonType": "string"},
				"role":              bson.M{"enum": bson.A{models.RoleUser, models.RoleAdmin}},
				"password_hash":     bson.M{"bsonType": "string"},
				"google_id":         bson.M{"bsonType": "string"},
				"email_verified_at": bson.M{"bsonType": "date"},
				"avatar_url":        bson.M{"bsonType": "string"},
				"created_at":        bson.M{"bsonType": "date"},
			},
		},
	}
}

func mapsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "owner_id", "link_public"},
			"properties": bson.M{
				"name":         nonBlank,
				"icon":         bson.M{"bsonType": "string"},
				"owner_id":     bson.M{"bsonType": "objectId"},
				"link_public":  bson.M{"bsonType": "bool"},
				"public_token": bson.M{"bsonType": "string", "pattern": "^[0-9a-f]{32}$"},
			},
		},
	}
}

func mapSharesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"map_id", "invited_email", "role"},
			"properties": bson.M{
				"map_id":          bson.M{"bsonType": "objectId"},
				"invited_email":   nonBlank,
				"invited_user_id": bson.M{"bsonType": "objectId"},
				"role":            bson.M{"enum": bson.A{models.ShareRead, models.ShareWrite}},
			},
		},
	}
}

func spotsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "owner_id", "latitude", "longitude", "visibility"},
			"properties": bson.M{
				"title":       nonBlank,
				"description": bson.M{"bsonType": "string"},
				"latitude":    bson.M{"bsonType": "number", "minimum": -90, "maximum": 90},
				"longitude":   bson.M{"bsonType": "number", "minimum": -180, "maximum": 180},
				"owner_id":    bson.M{"bsonType": "objectId"},
				"map_id":      bson.M{"bsonType": "objectId"},
				"visibility":  bson.M{"enum": bson.A{string(models.VisibilityPublic), string(models.VisibilityScoped)}},
				"tag_ids":     bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
			},
		},
	}
}

func spotMapsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"spot_id", "map_id"},
			"properties": bson.M{
				"spot_id": bson.M{"bsonType": "objectId"},
				"map_id":  bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func spotImagesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"spot_id", "url"},
			"properties": bson.M{
				"spot_id": bson.M{"bsonType": "objectId"},
				"url":     nonBlank,
				"key":     bson.M{"bsonType": "string"},
			},
		},
	}
}

func tagsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci"},
			"properties": bson.M{
				"name":    nonBlank,
				"name_ci": nonBlank,
			},
		},
	}
}

func spotRatingsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"spot_id", "user_id", "value"},
			"properties": bson.M{
				"spot_id": bson.M{"bsonType": "objectId"},
				"user_id": bson.M{"bsonType": "objectId"},
				"value":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": models.MinRating, "maximum": models.MaxRating},
			},
		},
	}
}

func auditEventsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"timestamp", "category", "event_type", "success"},
			"properties": bson.M{
				"timestamp":  bson.M{"bsonType": "date"},
				"category":   bson.M{"enum": bson.A{"auth", "admin"}},
				"event_type": nonBlank,
				"user_id":    bson.M{"bsonType": "objectId"},
				"actor_id":   bson.M{"bsonType": "objectId"},
				"success":    bson.M{"bsonType": "bool"},
			},
		},
	}
}
