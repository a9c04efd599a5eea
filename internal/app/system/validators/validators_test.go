package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/flyspot/internal/app/system/validators"
	"github.com/dalemusser/flyspot/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func setup(t *testing.T) *mongo.Database {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return db
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"users", "maps", "map_shares", "spots", "spot_maps", "spot_images", "tags", "spot_ratings", "audit_events", "auth_tokens", "oauth_states"} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestUsersValidator(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now()
	if _, err := db.Collection("users").InsertOne(ctx, bson.M{
		"email": "pilot@example.com", "name": "Pilot", "name_ci": "pilot", "role": "USER", "created_at": now,
	}); err != nil {
		t.Errorf("valid user rejected: %v", err)
	}
	if _, err := db.Collection("users").InsertOne(ctx, bson.M{
		"email": "x@example.com", "name": "X", "role": "superuser", "created_at": now,
	}); err == nil {
		t.Error("expected unknown role to be rejected")
	}
	if _, err := db.Collection("users").InsertOne(ctx, bson.M{"email": "y@example.com"}); err == nil {
		t.Error("expected missing required fields to be rejected")
	}
}

func TestMapSharesValidator_Role(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := db.Collection("map_shares").InsertOne(ctx, bson.M{
		"map_id": primitive.NewObjectID(), "invited_email": "a@b.c", "role": "OWNER",
	})
	if err == nil {
		t.Error("expected share role outside READ/WRITE to be rejected")
	}
}

func TestSpotsValidator_Coordinates(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := func(lat, lng float64) bson.M {
		return bson.M{
			"title": "Ridge", "owner_id": primitive.NewObjectID(),
			"latitude": lat, "longitude": lng, "visibility": "public",
		}
	}
	if _, err := db.Collection("spots").InsertOne(ctx, base(45.1, 6.2)); err != nil {
		t.Errorf("valid spot rejected: %v", err)
	}
	if _, err := db.Collection("spots").InsertOne(ctx, base(95, 6.2)); err == nil {
		t.Error("expected latitude > 90 to be rejected")
	}
}

func TestSpotRatingsValidator_Range(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, v := range []int{0, 6} {
		_, err := db.Collection("spot_ratings").InsertOne(ctx, bson.M{
			"spot_id": primitive.NewObjectID(), "user_id": primitive.NewObjectID(), "value": v,
		})
		if err == nil {
			t.Errorf("expected rating %d to be rejected", v)
		}
	}
}
