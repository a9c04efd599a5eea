// internal/domain/models/mapshare.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MapShare grants a non-owner READ or WRITE access to a map.
// There is at most one row per (MapID, InvitedEmail). InvitedUserID is
// filled in once an account with that email exists.
type MapShare struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	MapID         primitive.ObjectID  `bson:"map_id" json:"map_id"`
	InvitedEmail  string              `bson:"invited_email" json:"invited_email"`
	InvitedUserID *primitive.ObjectID `bson:"invited_user_id,omitempty" json:"invited_user_id,omitempty"`
	Role          string              `bson:"role" json:"role"` // READ | WRITE

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
