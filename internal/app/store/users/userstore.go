// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/flyspot/internal/app/system/normalize"
	"github.com/dalemusser/flyspot/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New(`role must be "USER"|"ADMIN"`)
	errEmailRequired  = errors.New("email is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

// GetByGoogleID looks up a user linked to a Google account.
func (s *Store) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	if googleID == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"google_id": googleID})
}

// Create inserts a new user after normalizing fields. Role defaults to USER.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Email = normalize.Email(u.Email)
	u.Name = normalize.Name(u.Name)
	u.NameCI = normalize.NameCI(u.Name)
	if u.Email == "" {
		return models.User{}, errEmailRequired
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if !models.IsValidRole(u.Role) {
		return models.User{}, errBadRole
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

func (s *Store) set(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile changes name and email. Returns ErrDuplicateEmail if the
// email belongs to another user.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, email string) error {
	name = normalize.Name(name)
	return s.set(ctx, id, bson.M{
		"name":    name,
		"name_ci": normalize.NameCI(name),
		"email":   normalize.Email(email),
	})
}

// SetPassword stores a new bcrypt hash.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return s.set(ctx, id, bson.M{"password_hash": hash})
}

// MarkVerified stamps email_verified_at. It reports false when the account
// was already verified.
func (s *Store) MarkVerified(ctx context.Context, id primitive.ObjectID) (bool, error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "email_verified_at": nil},
		bson.M{"$set": bson.M{"email_verified_at": now, "updated_at": now}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// LinkGoogle attaches a Google account id and marks the email verified
// (Google has confirmed it).
func (s *Store) LinkGoogle(ctx context.Context, id primitive.ObjectID, googleID string) error {
	now := time.Now().UTC()
	if err := s.set(ctx, id, bson.M{"google_id": googleID}); err != nil {
		return err
	}
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "email_verified_at": nil},
		bson.M{"$set": bson.M{"email_verified_at": now}},
	)
	return err
}

// SetAvatar records a new avatar and returns the previous object key.
func (s *Store) SetAvatar(ctx context.Context, id primitive.ObjectID, url, key string) (string, error) {
	return s.swapAvatar(ctx, id, bson.M{"$set": bson.M{"avatar_url": url, "avatar_key": key, "updated_at": time.Now().UTC()}})
}

// ClearAvatar removes the avatar and returns the previous object key.
func (s *Store) ClearAvatar(ctx context.Context, id primitive.ObjectID) (string, error) {
	return s.swapAvatar(ctx, id, bson.M{
		"$unset": bson.M{"avatar_url": "", "avatar_key": ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	})
}

func (s *Store) swapAvatar(ctx context.Context, id primitive.ObjectID, update bson.M) (string, error) {
	var before models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().
			SetReturnDocument(options.Before).
			SetProjection(bson.M{"avatar_key": 1}),
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotFound
	}
	return before.AvatarKey, err
}

// SetRole changes a user's site role.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	if !models.IsValidRole(role) {
		return errBadRole
	}
	return s.set(ctx, id, bson.M{"role": role})
}

// PromoteByEmail makes the account with email an ADMIN. It reports whether
// a matching account was found.
func (s *Store) PromoteByEmail(ctx context.Context, email string) (bool, error) {
	email = normalize.Email(email)
	if email == "" {
		return false, nil
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{"role": models.RoleAdmin, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// List returns every user ordered by name.
func (s *Store) List(ctx context.Context) ([]models.User, error) {
	cur, err := s.c.Find(ctx, bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}).
			SetProjection(bson.M{"password_hash": 0}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NamesByID returns display names keyed by id.
func (s *Store) NamesByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var u struct {
			ID   primitive.ObjectID `bson:"_id"`
			Name string             `bson:"name"`
		}
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u.Name
	}
	return out, cur.Err()
}

// EmailExistsForOther checks if an email already exists for a user other than the given ID.
func (s *Store) EmailExistsForOther(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"email": normalize.Email(email),
		"_id":   bson.M{"$ne": excludeID},
	}).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}
