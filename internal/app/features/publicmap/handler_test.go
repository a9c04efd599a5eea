package publicmap_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/dalemusser/flyspot/internal/app/features/publicmap"
	"github.com/dalemusser/flyspot/internal/app/features/shared/views"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"github.com/dalemusser/flyspot/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const token = "0123456789abcdef0123456789abcdef"

type body struct {
	Map struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		OwnerName string `json:"owner_name"`
	} `json:"map"`
	Spots []views.Spot `json:"spots"`
}

func TestServeMap(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	h := publicmap.NewHandler(db, zap.NewNop())

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", models.RoleUser)
	m := fx.CreatePublicMap(ctx, "Coast", owner.ID, token)
	private := fx.CreateMap(ctx, "Private", owner.ID)
	fx.CreateSpot(ctx, "Lighthouse", owner.ID, m.ID, private.ID)
	fx.CreateSpot(ctx, "Elsewhere", owner.ID, private.ID)

	rec := testutil.NewRecorder()
	h.ServeMap(rec, testutil.WithChiURLParam(testutil.NewRequest("GET", "/m/x"), "token", token))
	rec.AssertStatus(t, http.StatusOK)
	var got body
	rec.Decode(t, &got)
	if got.Map.Name != "Coast" || got.Map.OwnerName != "Owner" {
		t.Errorf("unexpected map %+v", got.Map)
	}
	if len(got.Spots) != 1 || got.Spots[0].Title != "Lighthouse" {
		t.Fatalf("spots = %+v", got.Spots)
	}
	if len(got.Spots[0].Maps) != 1 || got.Spots[0].Maps[0].ID != m.ID.Hex() {
		t.Errorf("only the linked map may show as a badge, got %+v", got.Spots[0].Maps)
	}
	if strings.Contains(rec.Body.String(), token) {
		t.Error("the response must not echo the public token")
	}

	wrong := testutil.NewRecorder()
	h.ServeMap(wrong, testutil.WithChiURLParam(testutil.NewRequest("GET", "/m/x"), "token", "ffffffffffffffffffffffffffffffff"))
	wrong.AssertStatus(t, http.StatusNotFound)

	if _, err := db.Collection("maps").UpdateByID(ctx, m.ID, bson.M{"$set": bson.M{"link_public": false}}); err != nil {
		t.Fatalf("disable link: %v", err)
	}
	off := testutil.NewRecorder()
	h.ServeMap(off, testutil.WithChiURLParam(testutil.NewPageRequest("GET", "/m/x"), "token", token))
	off.AssertRedirect(t, "/")
}
