// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll runs at startup. Each collection's index set is reconciled
idempotently and problems are aggregated so startup fails with the full
list rather than the first error.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, spec := range specs() {
		if err := ensureIndexSet(ctx, db.Collection(spec.coll), spec.models); err != nil {
			problems = append(problems, spec.coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type collSpec struct {
	coll   string
	models []mongo.IndexModel
}

func idx(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func uniq(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
}

// uniqIfString enforces uniqueness only on documents where field is a
// non-empty string, so unset optional fields do not collide.
func uniqIfString(name string, keys bson.D, field string) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().
		SetName(name).
		SetUnique(true).
		SetPartialFilterExpression(bson.M{field: bson.M{"$type": "string", "$gt": ""}})}
}

func ttl(name, field string) mongo.IndexModel {
	return mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}, Options: options.Index().
		SetName(name).
		SetExpireAfterSeconds(0)}
}

func specs() []collSpec {
	return []collSpec{
		{"users", []mongo.IndexModel{
			uniq("uniq_users_email", bson.D{{Key: "email", Value: 1}}),
			uniqIfString("uniq_users_google_id", bson.D{{Key: "google_id", Value: 1}}, "google_id"),
			idx("idx_users_role_nameci", bson.D{{Key: "role", Value: 1}, {Key: "name_ci", Value: 1}}),
		}},
		{"maps", []mongo.IndexModel{
			idx("idx_maps_owner_updated", bson.D{{Key: "owner_id", Value: 1}, {Key: "updated_at", Value: -1}}),
			uniqIfString("uniq_maps_public_token", bson.D{{Key: "public_token", Value: 1}}, "public_token"),
		}},
		{"map_shares", []mongo.IndexModel{
			uniq("uniq_map_shares_map_email", bson.D{{Key: "map_id", Value: 1}, {Key: "invited_email", Value: 1}}),
			idx("idx_map_shares_user", bson.D{{Key: "invited_user_id", Value: 1}}),
			idx("idx_map_shares_email", bson.D{{Key: "invited_email", Value: 1}}),
		}},
		{"spots", []mongo.IndexModel{
			idx("idx_spots_owner_created", bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}),
			idx("idx_spots_visibility_created", bson.D{{Key: "visibility", Value: 1}, {Key: "created_at", Value: -1}}),
			idx("idx_spots_map", bson.D{{Key: "map_id", Value: 1}}),
			idx("idx_spots_tags", bson.D{{Key: "tag_ids", Value: 1}}),
		}},
		{"spot_maps", []mongo.IndexModel{
			uniq("uniq_spot_maps_spot_map", bson.D{{Key: "spot_id", Value: 1}, {Key: "map_id", Value: 1}}),
			idx("idx_spot_maps_map", bson.D{{Key: "map_id", Value: 1}}),
		}},
		{"spot_images", []mongo.IndexModel{
			idx("idx_spot_images_spot_created", bson.D{{Key: "spot_id", Value: 1}, {Key: "created_at", Value: 1}}),
		}},
		{"tags", []mongo.IndexModel{
			uniq("uniq_tags_name_ci", bson.D{{Key: "name_ci", Value: 1}}),
		}},
		{"spot_ratings", []mongo.IndexModel{
			uniq("uniq_spot_ratings_spot_user", bson.D{{Key: "spot_id", Value: 1}, {Key: "user_id", Value: 1}}),
			idx("idx_spot_ratings_user", bson.D{{Key: "user_id", Value: 1}}),
		}},
		{"auth_tokens", []mongo.IndexModel{
			uniq("uniq_auth_tokens_hash", bson.D{{Key: "token_hash", Value: 1}}),
			idx("idx_auth_tokens_purpose_email", bson.D{{Key: "purpose", Value: 1}, {Key: "email", Value: 1}}),
			ttl("ttl_auth_tokens_expires", "expires_at"),
		}},
		{"oauth_states", []mongo.IndexModel{
			uniq("uniq_oauth_states_state", bson.D{{Key: "state", Value: 1}}),
			ttl("ttl_oauth_states_expires", "expires_at"),
		}},
		{"audit_events", []mongo.IndexModel{
			idx("idx_audit_user_id", bson.D{{Key: "user_id", Value: 1}, {Key: "_id", Value: -1}}),
			idx("idx_audit_category_type_id", bson.D{{Key: "category", Value: 1}, {Key: "event_type", Value: 1}, {Key: "_id", Value: -1}}),
			idx("idx_audit_timestamp", bson.D{{Key: "timestamp", Value: -1}}),
		}},
	}
}

/* -------------------------------------------------------------------------- */
/* Reconcile desired indexes against what the collection already has           */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name               string `bson:"name"`
	Key                bson.D `bson:"key"`
	Unique             *bool  `bson:"unique,omitempty"`
	ExpireAfterSeconds *int32 `bson:"expireAfterSeconds,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolOf(b *bool) bool { return b != nil && *b }

func ttlOf(v *int32) int32 {
	if v == nil {
		return -1
	}
	return *v
}

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var ex existingIndex
		if err := cur.Decode(&ex); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(ex.Key)] = ex
	}
	return out, cur.Err()
}

// ensureIndexSet creates missing indexes and drops and recreates any whose
// key pattern matches but whose name or options differ.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// A collection that does not exist yet has no indexes to compare.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		start := time.Now()
		sig := keySig(m.Keys.(bson.D))
		name := *m.Options.Name
		wantUnique := boolOf(m.Options.Unique)
		wantTTL := ttlOf(m.Options.ExpireAfterSeconds)

		if ex, ok := existing[sig]; ok {
			if ex.Name == name && boolOf(ex.Unique) == wantUnique && ttlOf(ex.ExpireAfterSeconds) == wantTTL {
				continue
			}
			zap.L().Info("recreating index with changed name or options",
				zap.String("collection", coll.Name()),
				zap.String("from", ex.Name),
				zap.String("to", name),
				zap.String("keys", sig))
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop %s: %v", name, ex.Name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if wantUnique && isDuplicateKeyErr(err) {
				errs = append(errs, fmt.Sprintf("%s: cannot create unique index, duplicates present on %s", name, sig))
			} else {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			}
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isDuplicateKeyErr(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}
