// internal/domain/models/spot.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Visibility is the explicit public/private state of a spot.
type Visibility string

const (
	// VisibilityPublic spots have no map association and are visible to anyone.
	VisibilityPublic Visibility = "public"
	// VisibilityScoped spots are visible only through their associated maps.
	VisibilityScoped Visibility = "scoped"
)

// VisibilityFor derives the visibility from a spot's associations.
func VisibilityFor(primary *primitive.ObjectID, linked int) Visibility {
	if primary == nil && linked == 0 {
		return VisibilityPublic
	}
	return VisibilityScoped
}

// Spot is a geotagged point of interest.
//
// MapID is the primary map. Additional associations live in the spot_maps
// collection (SpotMap). Visibility is kept in step with both by the store.
type Spot struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description" json:"description"`
	Latitude    float64              `bson:"latitude" json:"latitude"`
	Longitude   float64              `bson:"longitude" json:"longitude"`
	OwnerID     primitive.ObjectID   `bson:"owner_id" json:"owner_id"`
	MapID       *primitive.ObjectID  `bson:"map_id,omitempty" json:"map_id,omitempty"`
	Visibility  Visibility           `bson:"visibility" json:"visibility"`
	TagIDs      []primitive.ObjectID `bson:"tag_ids,omitempty" json:"tag_ids,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// SpotMap associates a spot with a map.
type SpotMap struct {
	SpotID    primitive.ObjectID `bson:"spot_id" json:"spot_id"`
	MapID     primitive.ObjectID `bson:"map_id" json:"map_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// SpotImage is an uploaded image of a spot. The earliest one is the
// primary display image.
type SpotImage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SpotID    primitive.ObjectID `bson:"spot_id" json:"spot_id"`
	URL       string             `bson:"url" json:"url"`
	Key       string             `bson:"key,omitempty" json:"-"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// SpotRating is one user's 1-5 rating of a spot.
type SpotRating struct {
	SpotID    primitive.ObjectID `bson:"spot_id" json:"spot_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Value     int                `bson:"value" json:"value"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)
