package spots_test

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/dalemusser/flyspot/internal/app/features/shared/views"
	"github.com/dalemusser/flyspot/internal/app/features/spots"
	"github.com/dalemusser/flyspot/internal/app/store/audit"
	"github.com/dalemusser/flyspot/internal/app/store/queries/audience"
	"github.com/dalemusser/flyspot/internal/app/system/auditlog"
	"github.com/dalemusser/flyspot/internal/app/system/events"
	"github.com/dalemusser/flyspot/internal/app/system/imageupload"
	"github.com/dalemusser/flyspot/internal/app/system/objstore"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"github.com/dalemusser/flyspot/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type env struct {
	h      *spots.Handler
	fx     *testutil.Fixtures
	up     *imageupload.Uploader
	events *testutil.EventCapture
	root   string
	ctx    context.Context
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	up, root := testutil.NewUploader(t, 1<<20, 4)
	capture := &testutil.EventCapture{}
	notifier := events.NewNotifier(events.Local{Broker: capture}, audience.New(db), zap.NewNop())
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	return &env{
		h:      spots.NewHandler(db, up, notifier, auditlog.New(audit.New(db), zap.NewNop(), auditlog.Config{Auth: auditlog.Off, Admin: auditlog.DB}), zap.NewNop()),
		fx:     testutil.NewFixtures(t, db),
		up:     up,
		events: capture,
		root:   root,
		ctx:    ctx,
	}
}

func (e *env) count(t *testing.T, coll string) int64 {
	t.Helper()
	n, err := e.fx.DB().Collection(coll).CountDocuments(e.ctx, bson.M{})
	if err != nil {
		t.Fatalf("count %s: %v", coll, err)
	}
	return n
}

// storedImage writes a real file and attaches it to the spot.
func (e *env) storedImage(t *testing.T, sp models.Spot, key string) models.SpotImage {
	t.Helper()
	if err := objstore.Put(e.ctx, e.up.Store(), key, bytes.NewReader(testutil.PNG), "image/png"); err != nil {
		t.Fatalf("put %s: %v", key, err)
	}
	return e.fx.CreateImage(e.ctx, sp.ID, key)
}

func onSpot(r *http.Request, sp models.Spot, u models.User) *http.Request {
	return testutil.WithChiURLParam(testutil.WithUser(r, u), "spotID", sp.ID.Hex())
}

func png(name string) testutil.UploadFile {
	return testutil.UploadFile{Field: "images", Name: name, ContentType: "image/png", Data: testutil.PNG}
}

func spotForm(extra url.Values) url.Values {
	v := url.Values{
		"title":       {"Cliff top"},
		"description": {"Wide open, low wind"},
		"tags":        {"coast"},
		"latitude":    {"48.4"},
		"longitude":   {"-4.5"},
	}
	for k, vals := range extra {
		v[k] = vals
	}
	return v
}

type saved struct {
	Spot          views.SpotDetail `json:"spot"`
	RejectedFiles int              `json:"rejected_files"`
}

func TestCreate_EveryTargetMapNeedsWrite(t *testing.T) {
	e := newEnv(t)
	owner := e.fx.CreateUser(e.ctx, "Owner", "owner@example.com", models.RoleUser)
	pilot := e.fx.CreateUser(e.ctx, "Pilot", "pilot@example.com", models.RoleUser)
	a := e.fx.CreateMap(e.ctx, "A", owner.ID)
	b := e.fx.CreateMap(e.ctx, "B", owner.ID)
	e.fx.CreateShare(e.ctx, a.ID, pilot, models.ShareWrite)
	e.fx.CreateShare(e.ctx, b.ID, pilot, models.ShareRead)
	e.fx.CreateTag(e.ctx, "coast")

	form := spotForm(url.Values{"map_ids": {a.ID.Hex(), b.ID.Hex()}})
	rec := testutil.NewRecorder()
	e.h.HandleCreate(rec, testutil.WithUser(testutil.NewMultipartRequest(t, "POST", "/spots", form, png("a.png")), pilot))
	rec.AssertStatus(t, http.StatusForbidden)
	for _, coll := range []string{"spots", "spot_maps", "spot_images"} {
		if n := e.count(t, coll); n != 0 {
			t.Errorf("%s has %d rows after a rejected create", coll, n)
		}
	}

	ok := testutil.NewRecorder()
	e.h.HandleCreate(ok, testutil.WithUser(testutil.NewMultipartRequest(t, "POST", "/spots", spotForm(url.Values{"map_ids": {a.ID.Hex()}}), png("a.png")), pilot))
	ok.AssertStatus(t, http.StatusCreated)
	var got saved
	ok.Decode(t, &got)
	if got.Spot.Visibility != models.VisibilityScoped || got.Spot.PrimaryMapID != a.ID.Hex() {
		t.Errorf("unexpected spot %+v", got.Spot)
	}
	if len(got.Spot.Images) != 1 || len(got.Spot.Tags) != 1 || !got.Spot.CanEdit {
		t.Errorf("images=%d tags=%d can_edit=%v", len(got.Spot.Images), len(got.Spot.Tags), got.Spot.CanEdit)
	}
}

func TestCreate_MissingMapIsNotFound(t *testing.T) {
	e := newEnv(t)
	pilot := e.fx.CreateUser(e.ctx, "Pilot", "pilot@example.com", models.RoleUser)
	e.fx.CreateTag(e.ctx, "coast")

	form := spotForm(url.Values{"map_ids": {"0123456789abcdef01234567"}})
	rec := testutil.NewRecorder()
	e.h.HandleCreate(rec, testutil.WithUser(testutil.NewMultipartRequest(t, "POST", "/spots", form, png("a.png")), pilot))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestCreate_Validation(t *testing.T) {
	e := newEnv(t)
	pilot := e.fx.CreateUser(e.ctx, "Pilot", "pilot@example.com", models.RoleUser)
	e.fx.CreateTag(e.ctx, "coast")

	rec := testutil.NewRecorder()
	e.h.HandleCreate(rec, testutil.WithUser(testutil.NewMultipartRequest(t, "POST", "/spots", url.Values{"title": {"Only a title"}}), pilot))
	rec.AssertStatus(t, http.StatusUnprocessableEntity)
	var body struct {
		Error struct {
			Fields map[string]string `json:"fields"`
			Values map[string]string `json:"values"`
		} `json:"error"`
	}
	rec.Decode(t, &body)
	for _, f := range []string{"description", "tags", "images", "latitude", "longitude"} {
		if body.Error.Fields[f] == "" {
			t.Errorf("expected a message for %s, got %v", f, body.Error.Fields)
		}
	}
	if body.Error.Values["title"] != "Only a title" {
		t.Errorf("submitted title should be echoed, got %v", body.Error.Values)
	}

	badLat := testutil.NewRecorder()
	e.h.HandleCreate(badLat, testutil.WithUser(testutil.NewMultipartRequest(t, "POST", "/spots", spotForm(url.Values{"latitude": {"91"}}), png("a.png")), pilot))
	badLat.AssertStatus(t, http.StatusUnprocessableEntity)

	unknown := testutil.NewRecorder()
	e.h.HandleCreate(unknown, testutil.WithUser(testutil.NewMultipartRequest(t, "POST", "/spots", spotForm(url.Values{"tags": {"volcano"}}), png("a.png")), pilot))
	unknown.AssertStatus(t, http.StatusUnprocessableEntity)
	unknown.AssertContains(t, "volcano")

	notImage := testutil.UploadFile{Field: "images", Name: "notes.txt", ContentType: "text/plain", Data: []byte("hello")}
	none := testutil.NewRecorder()
	e.h.HandleCreate(none, testutil.WithUser(testutil.NewMultipartRequest(t, "POST", "/spots", spotForm(nil), notImage), pilot))
	none.AssertStatus(t, http.StatusUnprocessableEntity)

	if n := e.count(t, "spots"); n != 0 {
		t.Errorf("spots = %d after failed creates", n)
	}
}

func TestCreate_PublicSpotReportsRejectedFiles(t *testing.T) {
	e := newEnv(t)
	pilot := e.fx.CreateUser(e.ctx, "Pilot", "pilot@example.com", models.RoleUser)
	e.fx.CreateTag(e.ctx, "Coast")

	notImage := testutil.UploadFile{Field: "images", Name: "notes.txt", ContentType: "text/plain", Data: []byte("hello")}
	rec := testutil.NewRecorder()
	e.h.HandleCreate(rec, testutil.WithUser(testutil.NewMultipartRequest(t, "POST", "/spots", spotForm(nil), png("a.png"), notImage), pilot))
	rec.AssertStatus(t, http.StatusCreated)
	var got saved
	rec.Decode(t, &got)
	if got.RejectedFiles != 1 || got.Spot.Visibility != models.VisibilityPublic || len(got.Spot.Maps) != 0 {
		t.Errorf("unexpected result %+v", got)
	}
	if got := e.events.For(pilot.ID.Hex()); len(got) != 0 {
		t.Errorf("a public spot has no map audience, got %+v", got)
	}

	page := testutil.NewRecorder()
	req := testutil.NewMultipartRequest(t, "POST", "/spots", spotForm(nil), png("b.png"))
	req.Header.Set("Accept", "text/html")
	e.h.HandleCreate(page, testutil.WithUser(req, pilot))
	page.AssertRedirect(t, "/")
}

func TestCreate_NotifiesMapAudience(t *testing.T) {
	e := newEnv(t)
	owner := e.fx.CreateUser(e.ctx, "Owner", "owner@example.com", models.RoleUser)
	reader := e.fx.CreateUser(e.ctx, "Reader", "reader@example.com", models.RoleUser)
	m := e.fx.CreateMap(e.ctx, "Coast", owner.ID)
	e.fx.CreateShare(e.ctx, m.ID, reader, models.ShareRead)
	e.fx.CreateTag(e.ctx, "coast")

	rec := testutil.NewRecorder()
	e.h.HandleCreate(rec, testutil.WithUser(testutil.NewMultipartRequest(t, "POST", "/spots", spotForm(url.Values{"map_id": {m.ID.Hex()}}), png("a.png")), owner))
	rec.AssertStatus(t, http.StatusCreated)
	got := e.events.For(reader.ID.Hex())
	if len(got) == 0 {
		t.Fatal("reader should hear about the new spot")
	}
	if ev := got[len(got)-1]; ev.Kind != events.SpotsChanged || ev.MapID != m.ID.Hex() {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestServeSpot_Access(t *testing.T) {
	e := newEnv(t)
	owner := e.fx.CreateUser(e.ctx, "Owner", "owner@example.com", models.RoleUser)
	stranger := e.fx.CreateUser(e.ctx, "Stranger", "stranger@example.com", models.RoleUser)
	m := e.fx.CreateMap(e.ctx, "Coast", owner.ID)
	private := e.fx.CreateSpot(e.ctx, "Private", owner.ID, m.ID)
	public := e.fx.CreateSpot(e.ctx, "Public", owner.ID)
	e.fx.CreateRating(e.ctx, public.ID, stranger.ID, 4)

	rec := testutil.NewRecorder()
	e.h.ServeSpot(rec, testutil.WithChiURLParam(testutil.NewRequest("GET", "/spots/x"), "spotID", public.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
	var d views.SpotDetail
	rec.Decode(t, &d)
	if d.Rating.Count != 1 || d.CanEdit || d.CanRate {
		t.Errorf("anonymous view of a public spot: %+v", d)
	}

	mine := testutil.NewRecorder()
	e.h.ServeSpot(mine, onSpot(testutil.NewRequest("GET", "/spots/x"), public, stranger))
	mine.AssertStatus(t, http.StatusOK)
	d = views.SpotDetail{}
	mine.Decode(t, &d)
	if d.MyRating != 4 || !d.CanRate {
		t.Errorf("my_rating=%d can_rate=%v", d.MyRating, d.CanRate)
	}

	denied := testutil.NewRecorder()
	e.h.ServeSpot(denied, onSpot(testutil.NewRequest("GET", "/spots/x"), private, stranger))
	denied.AssertStatus(t, http.StatusForbidden)

	page := testutil.NewRecorder()
	e.h.ServeSpot(page, onSpot(testutil.NewPageRequest("GET", "/spots/x"), private, stranger))
	page.AssertRedirect(t, "/")
}

func TestList_PublicAndMine(t *testing.T) {
	e := newEnv(t)
	owner := e.fx.CreateUser(e.ctx, "Owner", "owner@example.com", models.RoleUser)
	pilot := e.fx.CreateUser(e.ctx, "Pilot", "pilot@example.com", models.RoleUser)
	shared := e.fx.CreateMap(e.ctx, "Shared", owner.ID)
	left := e.fx.CreateMap(e.ctx, "Left", owner.ID)
	e.fx.CreateShare(e.ctx, shared.ID, pilot, models.ShareWrite)
	tag := e.fx.CreateTag(e.ctx, "coast")

	pub := e.fx.CreateSpot(e.ctx, "Open field", pilot.ID)
	e.fx.DB().Collection("spots").UpdateByID(e.ctx, pub.ID, bson.M{"$set": bson.M{"tag_ids": bson.A{tag.ID}}})
	e.fx.CreateSpot(e.ctx, "On shared", pilot.ID, shared.ID)
	e.fx.CreateSpot(e.ctx, "On left", pilot.ID, left.ID)
	e.fx.CreateSpot(e.ctx, "Someone else", owner.ID)

	rec := testutil.NewRecorder()
	e.h.ServeList(rec, testutil.NewRequest("GET", "/spots"))
	rec.AssertStatus(t, http.StatusOK)
	var body struct {
		Spots []views.Spot `json:"spots"`
		Next  string       `json:"next"`
	}
	rec.Decode(t, &body)
	if len(body.Spots) != 2 {
		t.Errorf("public listing = %d, want 2", len(body.Spots))
	}

	tagged := testutil.NewRecorder()
	e.h.ServeList(tagged, testutil.NewRequest("GET", "/spots?tag="+tag.ID.Hex()))
	body.Spots = nil
	tagged.Decode(t, &body)
	if len(body.Spots) != 1 || body.Spots[0].ID != pub.ID.Hex() {
		t.Errorf("tag filter = %+v", body.Spots)
	}

	paged := testutil.NewRecorder()
	e.h.ServeList(paged, testutil.NewRequest("GET", "/spots?limit=1"))
	body.Spots, body.Next = nil, ""
	paged.Decode(t, &body)
	if len(body.Spots) != 1 || body.Next == "" {
		t.Errorf("limit=1 gave %d spots, next=%q", len(body.Spots), body.Next)
	}

	mine := testutil.NewRecorder()
	e.h.ServeMine(mine, testutil.WithUser(testutil.NewRequest("GET", "/spots/mine"), pilot))
	mine.AssertStatus(t, http.StatusOK)
	body.Spots = nil
	mine.Decode(t, &body)
	titles := map[string]bool{}
	for _, s := range body.Spots {
		titles[s.Title] = true
	}
	if len(body.Spots) != 2 || !titles["Open field"] || !titles["On shared"] {
		t.Errorf("mine = %v (spot on an unreadable map must be hidden)", titles)
	}
}

func TestUpdate_ReadInviteeRejectedWriteInviteeAllowed(t *testing.T) {
	e := newEnv(t)
	owner := e.fx.CreateUser(e.ctx, "A", "a@example.com", models.RoleUser)
	reader := e.fx.CreateUser(e.ctx, "B", "b@example.com", models.RoleUser)
	writer := e.fx.CreateUser(e.ctx, "C", "c@example.com", models.RoleUser)
	coastal := e.fx.CreateMap(e.ctx, "Coastal", owner.ID)
	e.fx.CreateShare(e.ctx, coastal.ID, reader, models.ShareRead)
	e.fx.CreateShare(e.ctx, coastal.ID, writer, models.ShareWrite)
	sp := e.fx.CreateSpot(e.ctx, "Dunes", owner.ID, coastal.ID)
	e.fx.CreateImage(e.ctx, sp.ID, "spots/dunes.png")

	body := map[string]string{"title": "Renamed dunes"}
	rec := testutil.NewRecorder()
	e.h.HandleUpdate(rec, onSpot(testutil.NewJSONRequest(t, "POST", "/spots/x", body), sp, reader))
	rec.AssertStatus(t, http.StatusForbidden)

	ok := testutil.NewRecorder()
	e.h.HandleUpdate(ok, onSpot(testutil.NewJSONRequest(t, "POST", "/spots/x", body), sp, writer))
	ok.AssertStatus(t, http.StatusOK)
	var got saved
	ok.Decode(t, &got)
	if got.Spot.Title != "Renamed dunes" || got.Spot.Description != sp.Description {
		t.Errorf("unexpected spot %+v", got.Spot)
	}
}

func TestUpdate_MovingIntoMapNeedsWrite(t *testing.T) {
	e := newEnv(t)
	owner := e.fx.CreateUser(e.ctx, "Owner", "owner@example.com", models.RoleUser)
	other := e.fx.CreateUser(e.ctx, "Other", "other@example.com", models.RoleUser)
	home := e.fx.CreateMap(e.ctx, "Home", owner.ID)
	theirs := e.fx.CreateMap(e.ctx, "Theirs", other.ID)
	open := e.fx.CreateMap(e.ctx, "Open", other.ID)
	e.fx.CreateShare(e.ctx, theirs.ID, owner, models.ShareRead)
	e.fx.CreateShare(e.ctx, open.ID, owner, models.ShareWrite)
	sp := e.fx.CreateSpot(e.ctx, "Ridge", owner.ID, home.ID)
	e.fx.CreateImage(e.ctx, sp.ID, "spots/ridge.png")

	rec := testutil.NewRecorder()
	e.h.HandleUpdate(rec, onSpot(testutil.NewJSONRequest(t, "POST", "/spots/x", map[string]any{"map_ids": []string{home.ID.Hex(), theirs.ID.Hex()}}), sp, owner))
	rec.AssertStatus(t, http.StatusForbidden)

	ok := testutil.NewRecorder()
	e.h.HandleUpdate(ok, onSpot(testutil.NewJSONRequest(t, "POST", "/spots/x", map[string]any{"map_ids": []string{open.ID.Hex()}}), sp, owner))
	ok.AssertStatus(t, http.StatusOK)
	var got saved
	ok.Decode(t, &got)
	if got.Spot.PrimaryMapID != open.ID.Hex() {
		t.Errorf("primary map = %s, want %s", got.Spot.PrimaryMapID, open.ID.Hex())
	}
	if n, _ := e.fx.DB().Collection("spot_maps").CountDocuments(e.ctx, bson.M{"spot_id": sp.ID}); n != 1 {
		t.Errorf("spot_maps rows = %d, want 1", n)
	}

	public := testutil.NewRecorder()
	e.h.HandleUpdate(public, onSpot(testutil.NewJSONRequest(t, "POST", "/spots/x", map[string]any{"map_ids": []string{}}), sp, owner))
	public.AssertStatus(t, http.StatusOK)
	got = saved{}
	public.Decode(t, &got)
	if got.Spot.Visibility != models.VisibilityPublic || got.Spot.PrimaryMapID != "" {
		t.Errorf("clearing maps should make the spot public: %+v", got.Spot)
	}
}

func TestUpdate_WriteInviteeCannotMakeSpotPublic(t *testing.T) {
	e := newEnv(t)
	owner := e.fx.CreateUser(e.ctx, "Owner", "owner@example.com", models.RoleUser)
	writer := e.fx.CreateUser(e.ctx, "Writer", "writer@example.com", models.RoleUser)
	coastal := e.fx.CreateMap(e.ctx, "Coastal", owner.ID)
	dunes := e.fx.CreateMap(e.ctx, "Dunes", owner.ID)
	private := e.fx.CreateMap(e.ctx, "Private", owner.ID)
	e.fx.CreateShare(e.ctx, coastal.ID, writer, models.ShareWrite)
	e.fx.CreateShare(e.ctx, dunes.ID, writer, models.ShareWrite)
	sp := e.fx.CreateSpot(e.ctx, "Ridge", owner.ID, coastal.ID, dunes.ID, private.ID)
	e.fx.CreateImage(e.ctx, sp.ID, "spots/ridge.png")
	links := func() int64 {
		n, _ := e.fx.DB().Collection("spot_maps").CountDocuments(e.ctx, bson.M{"spot_id": sp.ID})
		return n
	}

	public := testutil.NewRecorder()
	e.h.HandleUpdate(public, onSpot(testutil.NewJSONRequest(t, "POST", "/spots/x", map[string]any{"map_ids": []string{}}), sp, writer))
	public.AssertStatus(t, http.StatusForbidden)

	hidden := testutil.NewRecorder()
	e.h.HandleUpdate(hidden, onSpot(testutil.NewJSONRequest(t, "POST", "/spots/x", map[string]any{"map_ids": []string{coastal.ID.Hex(), dunes.ID.Hex()}}), sp, writer))
	hidden.AssertStatus(t, http.StatusForbidden)
	if n := links(); n != 3 {
		t.Fatalf("spot_maps rows = %d after rejected edits, want 3", n)
	}

	ok := testutil.NewRecorder()
	e.h.HandleUpdate(ok, onSpot(testutil.NewJSONRequest(t, "POST", "/spots/x", map[string]any{"map_ids": []string{coastal.ID.Hex(), private.ID.Hex()}}), sp, writer))
	ok.AssertStatus(t, http.StatusOK)
	var got saved
	ok.Decode(t, &got)
	if got.Spot.Visibility == models.VisibilityPublic {
		t.Errorf("spot should stay private: %+v", got.Spot)
	}
	if n := links(); n != 2 {
		t.Errorf("spot_maps rows = %d, want 2 after removing a writable map", n)
	}
}

func TestUpdate_ImagesKeepAtLeastOne(t *testing.T) {
	e := newEnv(t)
	owner := e.fx.CreateUser(e.ctx, "Owner", "owner@example.com", models.RoleUser)
	sp := e.fx.CreateSpot(e.ctx, "Ridge", owner.ID)
	img := e.storedImage(t, sp, "spots/old.png")

	del := url.Values{"delete_image_ids": {img.ID.Hex()}}
	rec := testutil.NewRecorder()
	e.h.HandleUpdate(rec, onSpot(testutil.NewMultipartRequest(t, "POST", "/spots/x", del), sp, owner))
	rec.AssertStatus(t, http.StatusUnprocessableEntity)
	if !testutil.FileExists(e.root, img.Key) {
		t.Error("image file should survive a rejected edit")
	}

	ok := testutil.NewRecorder()
	e.h.HandleUpdate(ok, onSpot(testutil.NewMultipartRequest(t, "POST", "/spots/x", del, png("new.png")), sp, owner))
	ok.AssertStatus(t, http.StatusOK)
	var got saved
	ok.Decode(t, &got)
	if len(got.Spot.Images) != 1 || got.Spot.Images[0].ID == img.ID.Hex() {
		t.Errorf("images = %+v", got.Spot.Images)
	}
	if testutil.FileExists(e.root, img.Key) {
		t.Error("deleted image file should be removed")
	}
}

func TestDelete_AdminModerationAndStrangers(t *testing.T) {
	e := newEnv(t)
	owner := e.fx.CreateUser(e.ctx, "Owner", "owner@example.com", models.RoleUser)
	stranger := e.fx.CreateUser(e.ctx, "Stranger", "stranger@example.com", models.RoleUser)
	admin := e.fx.CreateAdmin(e.ctx, "Admin", "admin@example.com")
	x := e.fx.CreateMap(e.ctx, "X", owner.ID)
	sp := e.fx.CreateSpot(e.ctx, "Pier", owner.ID, x.ID)
	img := e.storedImage(t, sp, "spots/pier.png")
	e.fx.CreateRating(e.ctx, sp.ID, owner.ID, 5)

	rec := testutil.NewRecorder()
	e.h.HandleDelete(rec, onSpot(testutil.NewRequest("DELETE", "/spots/x"), sp, stranger))
	rec.AssertStatus(t, http.StatusForbidden)

	own := e.fx.CreateSpot(e.ctx, "Own", owner.ID)
	mine := testutil.NewRecorder()
	e.h.HandleDelete(mine, onSpot(testutil.NewRequest("DELETE", "/spots/x"), own, owner))
	mine.AssertStatus(t, http.StatusNoContent)
	if n := e.count(t, "audit_events"); n != 0 {
		t.Errorf("an owner deleting their own spot is not moderation, audit rows = %d", n)
	}

	ok := testutil.NewRecorder()
	e.h.HandleDelete(ok, onSpot(testutil.NewRequest("DELETE", "/spots/x"), sp, admin))
	ok.AssertStatus(t, http.StatusNoContent)
	for _, coll := range []string{"spots", "spot_maps", "spot_images", "spot_ratings"} {
		if n := e.count(t, coll); n != 0 {
			t.Errorf("%s has %d rows after delete", coll, n)
		}
	}
	if testutil.FileExists(e.root, img.Key) {
		t.Error("image file should be removed")
	}
	if n := e.count(t, "maps"); n != 1 {
		t.Errorf("the map itself must survive, maps = %d", n)
	}

	logged, _, err := audit.New(e.fx.DB()).Query(e.ctx, audit.QueryFilter{EventType: audit.EventSpotDeleted})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(logged) != 1 {
		t.Fatalf("audit events = %d, want 1", len(logged))
	}
	ev := logged[0]
	if ev.ActorID == nil || *ev.ActorID != admin.ID || ev.UserID == nil || *ev.UserID != owner.ID || ev.Details["spot_id"] != sp.ID.Hex() {
		t.Errorf("unexpected audit event %+v", ev)
	}
}

func TestRate_Upserts(t *testing.T) {
	e := newEnv(t)
	owner := e.fx.CreateUser(e.ctx, "Owner", "owner@example.com", models.RoleUser)
	pilot := e.fx.CreateUser(e.ctx, "Pilot", "pilot@example.com", models.RoleUser)
	sp := e.fx.CreateSpot(e.ctx, "Beach", owner.ID)

	for _, v := range []int{3, 5} {
		rec := testutil.NewRecorder()
		e.h.HandleRate(rec, onSpot(testutil.NewJSONRequest(t, "POST", "/spots/x/rate", map[string]int{"value": v}), sp, pilot))
		rec.AssertStatus(t, http.StatusOK)
	}
	if n := e.count(t, "spot_ratings"); n != 1 {
		t.Fatalf("ratings = %d, want 1", n)
	}

	rec := testutil.NewRecorder()
	e.h.HandleRate(rec, onSpot(testutil.NewJSONRequest(t, "POST", "/spots/x/rate", map[string]int{"value": 4}), sp, owner))
	rec.AssertStatus(t, http.StatusOK)
	var got struct {
		Rating struct {
			Average float64 `json:"average"`
			Count   int     `json:"count"`
		} `json:"rating"`
		MyRating int `json:"my_rating"`
	}
	rec.Decode(t, &got)
	if got.Rating.Count != 2 || got.Rating.Average != 4.5 || got.MyRating != 4 {
		t.Errorf("unexpected summary %+v", got)
	}

	bad := testutil.NewRecorder()
	e.h.HandleRate(bad, onSpot(testutil.NewJSONRequest(t, "POST", "/spots/x/rate", map[string]int{"value": 9}), sp, pilot))
	bad.AssertStatus(t, http.StatusUnprocessableEntity)

	anon := testutil.NewRecorder()
	e.h.HandleRate(anon, testutil.WithChiURLParam(testutil.NewJSONRequest(t, "POST", "/spots/x/rate", map[string]int{"value": 2}), "spotID", sp.ID.Hex()))
	anon.AssertStatus(t, http.StatusUnauthorized)
}
