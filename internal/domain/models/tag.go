// internal/domain/models/tag.go
package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Tag is a shared label applied to spots.
type Tag struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"-"`
}
