// internal/domain/models/map.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultMapIcon is used when a map is created without an icon.
const DefaultMapIcon = "✈️"

// Map is a named collection of spots owned by one user.
//
// PublicToken is set the first time the public link is enabled and is kept
// when the link is disabled, so re-enabling restores the same URL. It only
// grants access while LinkPublic is true.
type Map struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Icon        string             `bson:"icon,omitempty" json:"icon,omitempty"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	LinkPublic  bool               `bson:"link_public" json:"link_public"`
	PublicToken string             `bson:"public_token,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
