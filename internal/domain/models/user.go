// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a FlySpot account.
//
// PasswordHash is empty for accounts created through Google sign-in.
// EmailVerifiedAt is nil until the verification link is consumed.
type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email           string             `bson:"email" json:"email"`
	Name            string             `bson:"name" json:"name"`
	NameCI          string             `bson:"name_ci" json:"-"`
	Role            string             `bson:"role" json:"role"` // USER | ADMIN
	PasswordHash    string             `bson:"password_hash,omitempty" json:"-"`
	GoogleID        string             `bson:"google_id,omitempty" json:"-"`
	EmailVerifiedAt *time.Time         `bson:"email_verified_at,omitempty" json:"email_verified_at,omitempty"`
	AvatarURL       string             `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	AvatarKey       string             `bson:"avatar_key,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsVerified reports whether the account's email has been confirmed.
func (u User) IsVerified() bool { return u.EmailVerifiedAt != nil }

// IsAdmin reports whether the account holds the ADMIN role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
