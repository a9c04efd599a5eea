package register_test

import (
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/dalemusser/flyspot/internal/app/features/register"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"github.com/dalemusser/flyspot/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var tokenRE = regexp.MustCompile(`token=([0-9a-f]{64})`)

func newTestHandler(t *testing.T) (*register.Handler, *testutil.MailCapture, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	mail := &testutil.MailCapture{}
	h := register.NewHandler(db, mail, testutil.NewAuthLimiter(t), "FlySpot", "http://localhost:3000", 24*time.Hour, nil, zap.NewNop())
	return h, mail, db
}

func lastToken(t *testing.T, mail *testutil.MailCapture) string {
	t.Helper()
	e, ok := mail.Last()
	if !ok {
		t.Fatal("no email was sent")
	}
	m := tokenRE.FindStringSubmatch(e.TextBody)
	if m == nil {
		t.Fatalf("no token in email body: %s", e.TextBody)
	}
	return m[1]
}

func TestRegister_CreatesUnverifiedUserAndSendsLink(t *testing.T) {
	h, mail, db := newTestHandler(t)

	rec := testutil.NewRecorder()
	h.HandleRegister(rec, testutil.NewJSONRequest(t, "POST", "/auth/register", map[string]string{
		"name": "New Pilot", "email": "New@Example.com", "password": "secret1",
	}))
	rec.AssertStatus(t, http.StatusCreated)

	var resp struct {
		EmailSent bool `json:"email_sent"`
	}
	rec.Decode(t, &resp)
	if !resp.EmailSent {
		t.Error("email_sent should be true")
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	var u models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"email": "new@example.com"}).Decode(&u); err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	if u.IsVerified() {
		t.Error("new user must start unverified")
	}
	if u.PasswordHash == "" || u.PasswordHash == "secret1" {
		t.Error("password should be stored hashed")
	}
	lastToken(t, mail)
}

func TestRegister_ExistingEmailConflicts(t *testing.T) {
	h, _, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateUser(ctx, "Taken", "taken@example.com", models.RoleUser)

	rec := testutil.NewRecorder()
	h.HandleRegister(rec, testutil.NewJSONRequest(t, "POST", "/auth/register", map[string]string{
		"email": "TAKEN@example.com", "password": "secret1",
	}))
	rec.AssertStatus(t, http.StatusConflict)
	if rec.ErrorKind() != "conflict" {
		t.Errorf("kind = %q", rec.ErrorKind())
	}
}

func TestRegister_Validation(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := testutil.NewRecorder()
	h.HandleRegister(rec, testutil.NewJSONRequest(t, "POST", "/auth/register", map[string]string{
		"email": "not-an-email", "password": "123",
	}))
	rec.AssertStatus(t, http.StatusUnprocessableEntity)

	var resp struct {
		Error struct {
			Fields map[string]string `json:"fields"`
			Values map[string]string `json:"values"`
		} `json:"error"`
	}
	rec.Decode(t, &resp)
	if resp.Error.Fields["email"] == "" || resp.Error.Fields["password"] == "" {
		t.Errorf("fields = %v", resp.Error.Fields)
	}
	if _, leaked := resp.Error.Values["password"]; leaked {
		t.Error("password must not be echoed")
	}
}

func TestRegister_ClaimsPendingShares(t *testing.T) {
	h, _, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", models.RoleUser)
	m := fx.CreateMap(ctx, "Coast", owner.ID)
	fx.CreatePendingShare(ctx, m.ID, "invitee@example.com", models.ShareRead)

	rec := testutil.NewRecorder()
	h.HandleRegister(rec, testutil.NewJSONRequest(t, "POST", "/auth/register", map[string]string{
		"email": "invitee@example.com", "password": "secret1",
	}))
	rec.AssertStatus(t, http.StatusCreated)

	var share models.MapShare
	if err := db.Collection("map_shares").FindOne(ctx, bson.M{"map_id": m.ID}).Decode(&share); err != nil {
		t.Fatalf("load share: %v", err)
	}
	if share.InvitedUserID == nil {
		t.Error("pending share should resolve to the new user")
	}
}

func TestRegister_MailFailureStillCreates(t *testing.T) {
	h, mail, _ := newTestHandler(t)
	mail.Err = errors.New("smtp down")

	rec := testutil.NewRecorder()
	h.HandleRegister(rec, testutil.NewJSONRequest(t, "POST", "/auth/register", map[string]string{
		"email": "pilot@example.com", "password": "secret1",
	}))
	rec.AssertStatus(t, http.StatusCreated)
	var resp struct {
		EmailSent bool `json:"email_sent"`
	}
	rec.Decode(t, &resp)
	if resp.EmailSent {
		t.Error("email_sent should be false when delivery fails")
	}
}

func TestVerify_Outcomes(t *testing.T) {
	h, mail, _ := newTestHandler(t)

	rec := testutil.NewRecorder()
	h.HandleRegister(rec, testutil.NewJSONRequest(t, "POST", "/auth/register", map[string]string{
		"email": "pilot@example.com", "password": "secret1",
	}))
	token := lastToken(t, mail)

	verify := func(tok string) (*testutil.ResponseRecorder, string) {
		rec := testutil.NewRecorder()
		h.ServeVerify(rec, testutil.NewRequest("GET", "/auth/verify?token="+tok))
		var body struct {
			Status string `json:"status"`
		}
		if rec.Code == http.StatusOK {
			rec.Decode(t, &body)
		}
		return rec, body.Status
	}

	first, status := verify(token)
	first.AssertStatus(t, http.StatusOK)
	if status != "verified" {
		t.Errorf("status = %q, want verified", status)
	}

	reused, _ := verify(token)
	reused.AssertStatus(t, http.StatusUnprocessableEntity)

	bogus, _ := verify("deadbeef")
	bogus.AssertStatus(t, http.StatusUnprocessableEntity)
}

func TestResend(t *testing.T) {
	h, mail, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateUnverifiedUser(ctx, "New", "new@example.com")
	fx.CreateUser(ctx, "Done", "done@example.com", models.RoleUser)

	rec := testutil.NewRecorder()
	h.HandleResend(rec, testutil.NewJSONRequest(t, "POST", "/auth/verify/resend", map[string]string{"email": "new@example.com"}))
	rec.AssertStatus(t, http.StatusOK)
	if len(mail.Sent()) != 1 {
		t.Errorf("sent = %d, want 1", len(mail.Sent()))
	}

	verified := testutil.NewRecorder()
	h.HandleResend(verified, testutil.NewJSONRequest(t, "POST", "/auth/verify/resend", map[string]string{"email": "done@example.com"}))
	verified.AssertStatus(t, http.StatusUnprocessableEntity)

	missing := testutil.NewRecorder()
	h.HandleResend(missing, testutil.NewJSONRequest(t, "POST", "/auth/verify/resend", map[string]string{"email": "ghost@example.com"}))
	missing.AssertStatus(t, http.StatusNotFound)
}
