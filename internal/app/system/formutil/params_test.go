package formutil_test

import (
	"testing"

	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/formutil"
	"github.com/dalemusser/flyspot/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestObjectID(t *testing.T) {
	want := primitive.NewObjectID()
	req := testutil.WithChiURLParam(testutil.NewRequest("GET", "/maps/x"), "id", want.Hex())
	got, err := formutil.ObjectID(req, "id", "map")
	if err != nil || got != want {
		t.Errorf("ObjectID = %v, %v", got, err)
	}

	bad := testutil.WithChiURLParam(testutil.NewRequest("GET", "/maps/x"), "id", "nope")
	if _, err := formutil.ObjectID(bad, "id", "map"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("malformed id should be NotFound, got %v", err)
	}
}

func TestObjectIDs(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	ids, ok := formutil.ObjectIDs([]string{a.Hex(), b.Hex()})
	if !ok || len(ids) != 2 || ids[0] != a {
		t.Errorf("ObjectIDs = %v, %v", ids, ok)
	}
	if _, ok := formutil.ObjectIDs([]string{a.Hex(), "zz"}); ok {
		t.Error("expected failure on malformed id")
	}
}
