package profile_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/dalemusser/flyspot/internal/app/features/profile"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"github.com/dalemusser/flyspot/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*profile.Handler, *testutil.Fixtures, string) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	up, root := testutil.NewUploader(t, 1<<20, 4)
	return profile.NewHandler(db, up, 1<<20, zap.NewNop()), testutil.NewFixtures(t, db), root
}

func loadUser(t *testing.T, db *mongo.Database, u models.User) models.User {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	var out models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": u.ID}).Decode(&out); err != nil {
		t.Fatalf("load user: %v", err)
	}
	return out
}

func TestServeProfile(t *testing.T) {
	h, fx, _ := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "Pilot", "pilot@example.com", models.RoleUser)

	rec := testutil.NewRecorder()
	h.ServeProfile(rec, testutil.WithUser(testutil.NewRequest("GET", "/profile"), u))
	rec.AssertStatus(t, http.StatusOK)
	var got struct {
		Email       string `json:"email"`
		HasPassword bool   `json:"has_password"`
	}
	rec.Decode(t, &got)
	if got.Email != "pilot@example.com" || !got.HasPassword {
		t.Errorf("unexpected profile: %+v", got)
	}

	anon := testutil.NewRecorder()
	h.ServeProfile(anon, testutil.NewRequest("GET", "/profile"))
	anon.AssertStatus(t, http.StatusUnauthorized)
}

func TestUpdate_EmailClaimsPendingShares(t *testing.T) {
	h, fx, _ := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", models.RoleUser)
	u := fx.CreateUser(ctx, "Pilot", "pilot@example.com", models.RoleUser)
	m := fx.CreateMap(ctx, "Coast", owner.ID)
	fx.CreatePendingShare(ctx, m.ID, "pilot@work.example", models.ShareWrite)

	rec := testutil.NewRecorder()
	h.HandleUpdate(rec, testutil.WithUser(testutil.NewJSONRequest(t, "POST", "/profile", map[string]string{
		"name": "Pilot Two", "email": "Pilot@Work.Example",
	}), u))
	rec.AssertStatus(t, http.StatusOK)

	got := loadUser(t, fx.DB(), u)
	if got.Email != "pilot@work.example" || got.Name != "Pilot Two" {
		t.Errorf("profile not updated: %+v", got)
	}
	n, err := fx.DB().Collection("map_shares").CountDocuments(ctx, bson.M{"invited_user_id": u.ID})
	if err != nil || n != 1 {
		t.Errorf("pending share not claimed: n=%d err=%v", n, err)
	}
}

func TestUpdate_EmailTaken(t *testing.T) {
	h, fx, _ := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateUser(ctx, "Other", "other@example.com", models.RoleUser)
	u := fx.CreateUser(ctx, "Pilot", "pilot@example.com", models.RoleUser)

	rec := testutil.NewRecorder()
	h.HandleUpdate(rec, testutil.WithUser(testutil.NewJSONRequest(t, "POST", "/profile", map[string]string{"email": "other@example.com"}), u))
	rec.AssertStatus(t, http.StatusConflict)

	bad := testutil.NewRecorder()
	h.HandleUpdate(bad, testutil.WithUser(testutil.NewJSONRequest(t, "POST", "/profile", map[string]string{"email": "nope"}), u))
	bad.AssertStatus(t, http.StatusUnprocessableEntity)
}

func TestAvatar_UploadReplaceRemove(t *testing.T) {
	h, fx, root := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "Pilot", "pilot@example.com", models.RoleUser)

	upload := func() models.User {
		rec := testutil.NewRecorder()
		h.HandleAvatarUpload(rec, testutil.WithUser(testutil.NewMultipartRequest(t, "POST", "/profile/avatar", url.Values{},
			testutil.UploadFile{Field: "avatar", Name: "me.png", ContentType: "image/png", Data: testutil.PNG}), u))
		rec.AssertStatus(t, http.StatusOK)
		return loadUser(t, fx.DB(), u)
	}

	first := upload()
	if first.AvatarKey == "" || !testutil.FileExists(root, first.AvatarKey) {
		t.Fatalf("avatar not stored: %+v", first)
	}
	second := upload()
	if second.AvatarKey == first.AvatarKey {
		t.Fatal("avatar key should change")
	}
	if testutil.FileExists(root, first.AvatarKey) {
		t.Error("previous avatar file should be removed")
	}

	rec := testutil.NewRecorder()
	h.HandleAvatarRemove(rec, testutil.WithUser(testutil.NewRequest("DELETE", "/profile/avatar"), u))
	rec.AssertStatus(t, http.StatusNoContent)
	if got := loadUser(t, fx.DB(), u); got.AvatarKey != "" || got.AvatarURL != "" {
		t.Errorf("avatar not cleared: %+v", got)
	}
	if testutil.FileExists(root, second.AvatarKey) {
		t.Error("avatar file should be removed")
	}
}

func TestAvatar_RejectsNonImage(t *testing.T) {
	h, fx, _ := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "Pilot", "pilot@example.com", models.RoleUser)

	rec := testutil.NewRecorder()
	h.HandleAvatarUpload(rec, testutil.WithUser(testutil.NewMultipartRequest(t, "POST", "/profile/avatar", url.Values{},
		testutil.UploadFile{Field: "avatar", Name: "notes.txt", ContentType: "text/plain", Data: []byte("hello")}), u))
	rec.AssertStatus(t, http.StatusUnprocessableEntity)
}
