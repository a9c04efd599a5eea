// internal/testutil/fixtures.go
package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/flyspot/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the password every fixture user is created with.
const TestPassword = "flyspot-pass"

// WithChiURLParam adds a chi URL parameter to the request context.
// Calling it again on the returned request adds to the same route context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("insert into %s: %v", coll, err)
	}
}

// CreateUser creates a verified user whose password is TestPassword.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()
	u := f.newUser(name, email, role)
	now := u.CreatedAt
	u.EmailVerifiedAt = &now
	f.insert(ctx, "users", u)
	return u
}

// CreateUnverifiedUser creates a user who has not confirmed their email.
func (f *Fixtures) CreateUnverifiedUser(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	u := f.newUser(name, email, models.RoleUser)
	f.insert(ctx, "users", u)
	return u
}

// CreateAdmin creates a verified ADMIN user.
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleAdmin)
}

func (f *Fixtures) newUser(name, email, role string) models.User {
	f.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	return models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		Name:         name,
		NameCI:       text.Fold(name),
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CreateMap creates a private map owned by ownerID.
func (f *Fixtures) CreateMap(ctx context.Context, name string, ownerID primitive.ObjectID) models.Map {
	f.t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	m := models.Map{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Icon:      models.DefaultMapIcon,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "maps", m)
	return m
}

// CreatePublicMap creates a map whose public link is enabled with token.
func (f *Fixtures) CreatePublicMap(ctx context.Context, name string, ownerID primitive.ObjectID, token string) models.Map {
	f.t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	m := models.Map{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Icon:        models.DefaultMapIcon,
		OwnerID:     ownerID,
		LinkPublic:  true,
		PublicToken: token,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "maps", m)
	return m
}

// CreateShare grants role on mapID to the given user.
func (f *Fixtures) CreateShare(ctx context.Context, mapID primitive.ObjectID, invitee models.User, role string) models.MapShare {
	f.t.Helper()
	id := invitee.ID
	return f.createShare(ctx, mapID, invitee.Email, &id, role)
}

// CreatePendingShare grants role to an email that has no account yet.
func (f *Fixtures) CreatePendingShare(ctx context.Context, mapID primitive.ObjectID, email, role string) models.MapShare {
	f.t.Helper()
	return f.createShare(ctx, mapID, email, nil, role)
}

func (f *Fixtures) createShare(ctx context.Context, mapID primitive.ObjectID, email string, userID *primitive.ObjectID, role string) models.MapShare {
	f.t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	s := models.MapShare{
		ID:            primitive.NewObjectID(),
		MapID:         mapID,
		InvitedEmail:  email,
		InvitedUserID: userID,
		Role:          role,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.insert(ctx, "map_shares", s)
	return s
}

// CreateSpot creates a spot owned by ownerID. The first map, when given,
// is the primary map. Every map gets a spot_maps row.
func (f *Fixtures) CreateSpot(ctx context.Context, title string, ownerID primitive.ObjectID, maps ...primitive.ObjectID) models.Spot {
	f.t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	s := models.Spot{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Description: "A good place to fly",
		Latitude:    45.5,
		Longitude:   -122.6,
		OwnerID:     ownerID,
		Visibility:  models.VisibilityPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(maps) > 0 {
		primary := maps[0]
		s.MapID = &primary
		s.Visibility = models.VisibilityScoped
	}
	f.insert(ctx, "spots", s)
	for _, m := range maps {
		f.LinkSpot(ctx, s.ID, m)
	}
	return s
}

// LinkSpot adds a spot_maps row. It does not touch the spot's visibility.
func (f *Fixtures) LinkSpot(ctx context.Context, spotID, mapID primitive.ObjectID) {
	f.t.Helper()
	f.insert(ctx, "spot_maps", models.SpotMap{SpotID: spotID, MapID: mapID, CreatedAt: time.Now().UTC()})
}

// CreateImage attaches an image row to a spot.
func (f *Fixtures) CreateImage(ctx context.Context, spotID primitive.ObjectID, key string) models.SpotImage {
	f.t.Helper()
	img := models.SpotImage{
		ID:        primitive.NewObjectID(),
		SpotID:    spotID,
		URL:       "/uploads/" + key,
		Key:       key,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	f.insert(ctx, "spot_images", img)
	return img
}

// CreateRating records userID's rating of spotID.
func (f *Fixtures) CreateRating(ctx context.Context, spotID, userID primitive.ObjectID, value int) {
	f.t.Helper()
	now := time.Now().UTC()
	f.insert(ctx, "spot_ratings", models.SpotRating{SpotID: spotID, UserID: userID, Value: value, CreatedAt: now, UpdatedAt: now})
}

// CreateTag creates a tag.
func (f *Fixtures) CreateTag(ctx context.Context, name string) models.Tag {
	f.t.Helper()
	tag := models.Tag{ID: primitive.NewObjectID(), Name: name, NameCI: text.Fold(name)}
	f.insert(ctx, "tags", tag)
	return tag
}
