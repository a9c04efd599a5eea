package password_test

import (
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/dalemusser/flyspot/internal/app/features/password"
	"github.com/dalemusser/flyspot/internal/app/system/authutil"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"github.com/dalemusser/flyspot/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var tokenRE = regexp.MustCompile(`token=([0-9a-f]{64})`)

func newTestHandler(t *testing.T) (*password.Handler, *testutil.MailCapture, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	mail := &testutil.MailCapture{}
	h := password.NewHandler(db, mail, testutil.NewAuthLimiter(t), "FlySpot", "http://localhost:3000", time.Hour, nil, zap.NewNop())
	return h, mail, db
}

func storedHash(t *testing.T, db *mongo.Database, id primitive.ObjectID) string {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	var u models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		t.Fatalf("load user: %v", err)
	}
	return u.PasswordHash
}

func TestForgot_UnknownEmailLooksTheSame(t *testing.T) {
	h, mail, _ := newTestHandler(t)

	rec := testutil.NewRecorder()
	h.HandleForgot(rec, testutil.NewJSONRequest(t, "POST", "/auth/password/forgot", map[string]string{"email": "ghost@example.com"}))
	rec.AssertStatus(t, http.StatusOK)
	if len(mail.Sent()) != 0 {
		t.Error("no email should go to an unknown address")
	}
}

func TestForgot_RequiresVerifiedEmail(t *testing.T) {
	h, _, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateUnverifiedUser(ctx, "New", "new@example.com")

	rec := testutil.NewRecorder()
	h.HandleForgot(rec, testutil.NewJSONRequest(t, "POST", "/auth/password/forgot", map[string]string{"email": "new@example.com"}))
	rec.AssertStatus(t, http.StatusUnprocessableEntity)
}

func TestResetFlow(t *testing.T) {
	h, mail, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "Pilot", "pilot@example.com", models.RoleUser)
	before := storedHash(t, db, u.ID)

	rec := testutil.NewRecorder()
	h.HandleForgot(rec, testutil.NewJSONRequest(t, "POST", "/auth/password/forgot", map[string]string{"email": "pilot@example.com"}))
	rec.AssertStatus(t, http.StatusOK)

	e, ok := mail.Last()
	if !ok {
		t.Fatal("reset email not sent")
	}
	m := tokenRE.FindStringSubmatch(e.TextBody)
	if m == nil {
		t.Fatalf("no token in %q", e.TextBody)
	}
	token := m[1]

	check := testutil.NewRecorder()
	h.ServeResetCheck(check, testutil.NewRequest("GET", "/auth/password/reset?token="+token))
	check.AssertStatus(t, http.StatusOK)

	short := testutil.NewRecorder()
	h.HandleReset(short, testutil.NewJSONRequest(t, "POST", "/auth/password/reset", map[string]string{"token": token, "password": "123"}))
	short.AssertStatus(t, http.StatusUnprocessableEntity)

	reset := testutil.NewRecorder()
	h.HandleReset(reset, testutil.NewJSONRequest(t, "POST", "/auth/password/reset", map[string]string{"token": token, "password": "brand-new"}))
	reset.AssertStatus(t, http.StatusOK)

	after := storedHash(t, db, u.ID)
	if after == before || !authutil.CheckPassword(after, "brand-new") {
		t.Error("password was not updated")
	}

	again := testutil.NewRecorder()
	h.HandleReset(again, testutil.NewJSONRequest(t, "POST", "/auth/password/reset", map[string]string{"token": token, "password": "other-pass"}))
	again.AssertStatus(t, http.StatusUnprocessableEntity)
}

func TestChange(t *testing.T) {
	h, _, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "Pilot", "pilot@example.com", models.RoleUser)

	wrong := testutil.NewRecorder()
	h.HandleChange(wrong, testutil.WithUser(testutil.NewJSONRequest(t, "POST", "/auth/password/change", map[string]string{
		"current_password": "not-it", "new_password": "another1",
	}), u))
	wrong.AssertStatus(t, http.StatusUnprocessableEntity)

	ok := testutil.NewRecorder()
	h.HandleChange(ok, testutil.WithUser(testutil.NewJSONRequest(t, "POST", "/auth/password/change", map[string]string{
		"current_password": testutil.TestPassword, "new_password": "another1",
	}), u))
	ok.AssertStatus(t, http.StatusOK)
	if !authutil.CheckPassword(storedHash(t, db, u.ID), "another1") {
		t.Error("password was not changed")
	}

	anon := testutil.NewRecorder()
	h.HandleChange(anon, testutil.NewJSONRequest(t, "POST", "/auth/password/change", map[string]string{}))
	anon.AssertStatus(t, http.StatusUnauthorized)
}
