// internal/app/store/tokens/store.go
package tokens

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/dalemusser/flyspot/internal/app/system/normalize"
	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Purposes.
const (
	PurposeVerifyEmail   = "verify_email"
	PurposeResetPassword = "reset_password"
)

// Default lifetimes.
const (
	DefaultVerifyExpiry = 24 * time.Hour
	DefaultResetExpiry  = time.Hour
)

// TokenBytes is the random length of a token before hex encoding.
const TokenBytes = 32

var (
	// ErrInvalid is returned for a token that was never issued or was already used.
	ErrInvalid = errors.New("invalid token")
	// ErrExpired is returned for a token past its expiry.
	ErrExpired = errors.New("token expired")
)

// Token is a single-use token row. Only the sha256 of the token is stored.
type Token struct {
	Purpose   string    `bson:"purpose"`
	Email     string    `bson:"email"`
	TokenHash string    `bson:"token_hash"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store manages single-use email tokens in MongoDB.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

// New creates a token Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("auth_tokens"), now: time.Now}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Issue creates a token for (purpose, email) valid for ttl and returns the
// plain value to put in a link. Earlier tokens for the same pair are removed.
func (s *Store) Issue(ctx context.Context, purpose, email string, ttl time.Duration) (string, error) {
	email = normalize.Email(email)
	raw := securecookie.GenerateRandomKey(TokenBytes)
	if raw == nil {
		return "", errors.New("tokens: random source failed")
	}
	token := hex.EncodeToString(raw)

	if _, err := s.c.DeleteMany(ctx, bson.M{"purpose": purpose, "email": email}); err != nil {
		return "", err
	}

	now := s.now().UTC()
	_, err := s.c.InsertOne(ctx, Token{
		Purpose:   purpose,
		Email:     email,
		TokenHash: hashToken(token),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Peek checks a token without using it up.
func (s *Store) Peek(ctx context.Context, purpose, token string) (Token, error) {
	if token == "" {
		return Token{}, ErrInvalid
	}
	var t Token
	err := s.c.FindOne(ctx, bson.M{"purpose": purpose, "token_hash": hashToken(token)}).Decode(&t)
	return s.check(t, err)
}

// Consume deletes the token and returns it. An expired token is deleted
// too and reported as ErrExpired.
func (s *Store) Consume(ctx context.Context, purpose, token string) (Token, error) {
	if token == "" {
		return Token{}, ErrInvalid
	}
	var t Token
	err := s.c.FindOneAndDelete(ctx, bson.M{"purpose": purpose, "token_hash": hashToken(token)}).Decode(&t)
	return s.check(t, err)
}

func (s *Store) check(t Token, err error) (Token, error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Token{}, ErrInvalid
	}
	if err != nil {
		return Token{}, err
	}
	if !s.now().Before(t.ExpiresAt) {
		return t, ErrExpired
	}
	return t, nil
}

// DeleteFor removes every token of purpose for email.
func (s *Store) DeleteFor(ctx context.Context, purpose, email string) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"purpose": purpose, "email": normalize.Email(email)})
	return err
}

// CleanupExpired removes expired tokens. The TTL index does this too, but
// only once a minute at best.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": s.now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
