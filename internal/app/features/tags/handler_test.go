package tags_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/flyspot/internal/app/features/shared/views"
	"github.com/dalemusser/flyspot/internal/app/features/tags"
	"github.com/dalemusser/flyspot/internal/testutil"
	"go.uber.org/zap"
)

func TestServeList_SortedByName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	fx.CreateTag(ctx, "Mountain")
	fx.CreateTag(ctx, "coast")

	rec := testutil.NewRecorder()
	tags.NewHandler(db, zap.NewNop()).ServeList(rec, testutil.NewRequest("GET", "/tags"))
	rec.AssertStatus(t, http.StatusOK)
	var got struct {
		Tags []views.Tag `json:"tags"`
	}
	rec.Decode(t, &got)
	if len(got.Tags) != 2 || got.Tags[0].Name != "coast" || got.Tags[1].Name != "Mountain" {
		t.Errorf("tags = %+v", got.Tags)
	}
}
