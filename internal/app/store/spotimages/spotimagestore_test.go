package spotimagestore_test

import (
	"testing"

	spotimagestore "github.com/dalemusser/flyspot/internal/app/store/spotimages"
	"github.com/dalemusser/flyspot/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_AddKeepsOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := spotimagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	spotID := primitive.NewObjectID()
	if _, err := store.Add(ctx, spotID, []spotimagestore.NewImage{
		{URL: "/uploads/a.png", Key: "a.png"},
		{URL: "/uploads/b.png", Key: "b.png"},
		{URL: "/uploads/c.png", Key: "c.png"},
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	imgs, err := store.ListBySpot(ctx, spotID)
	if err != nil {
		t.Fatalf("ListBySpot failed: %v", err)
	}
	if len(imgs) != 3 || imgs[0].Key != "a.png" || imgs[2].Key != "c.png" {
		t.Errorf("unexpected order: %+v", imgs)
	}

	primary, err := store.Primary(ctx, []primitive.ObjectID{spotID, primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("Primary failed: %v", err)
	}
	if len(primary) != 1 || primary[spotID].Key != "a.png" {
		t.Errorf("primary = %+v", primary)
	}
}

func TestStore_DeleteByIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := spotimagestore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	spotID, otherSpot := primitive.NewObjectID(), primitive.NewObjectID()
	keep := fx.CreateImage(ctx, spotID, "keep.png")
	drop := fx.CreateImage(ctx, spotID, "drop.png")
	foreign := fx.CreateImage(ctx, otherSpot, "foreign.png")

	n, err := store.CountRemaining(ctx, spotID, []primitive.ObjectID{drop.ID})
	if err != nil || n != 1 {
		t.Errorf("CountRemaining = %d, %v", n, err)
	}

	keys, err := store.DeleteByIDs(ctx, spotID, []primitive.ObjectID{drop.ID, foreign.ID})
	if err != nil {
		t.Fatalf("DeleteByIDs failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "drop.png" {
		t.Errorf("keys = %v", keys)
	}

	left, _ := store.ListBySpot(ctx, spotID)
	if len(left) != 1 || left[0].ID != keep.ID {
		t.Errorf("remaining = %+v", left)
	}
	other, _ := store.ListBySpot(ctx, otherSpot)
	if len(other) != 1 {
		t.Error("image of another spot must not be deleted")
	}
}

func TestStore_DeleteBySpots(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := spotimagestore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	fx.CreateImage(ctx, a, "a1.png")
	fx.CreateImage(ctx, a, "a2.png")
	fx.CreateImage(ctx, b, "b1.png")

	keys, err := store.DeleteBySpots(ctx, []primitive.ObjectID{a})
	if err != nil {
		t.Fatalf("DeleteBySpots failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("keys = %v", keys)
	}
	if n, _ := store.CountRemaining(ctx, b, nil); n != 1 {
		t.Errorf("spot b images = %d", n)
	}
}
