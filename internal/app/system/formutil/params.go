// internal/app/system/formutil/params.go
package formutil

import (
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ObjectID reads the chi URL parameter name as an ObjectID. A malformed
// id is NotFound: it cannot name anything that exists.
func ObjectID(r *http.Request, name, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound(what + " not found")
	}
	return id, nil
}

// ObjectIDs parses hex ids, failing on the first malformed one.
func ObjectIDs(hexes []string) ([]primitive.ObjectID, bool) {
	out := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, false
		}
		out = append(out, id)
	}
	return out, true
}
