// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/flyspot/internal/app/system/auth"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the signed-in user's id, email and upper-cased role. A
// missing user or a malformed id yields ok=false, so callers can trust an
// ok id.
func UserCtx(r *http.Request) (userID primitive.ObjectID, email, role string, ok bool) {
	u, found := auth.CurrentUser(r)
	if !found {
		return primitive.NilObjectID, "", "", false
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID, "", "", false
	}
	return id, u.Email, strings.ToUpper(u.Role), true
}

// IsAdmin reports whether the signed-in user holds the ADMIN role.
func IsAdmin(r *http.Request) bool {
	_, _, role, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}

// IsSelf reports whether id is the signed-in user's id.
func IsSelf(r *http.Request, id primitive.ObjectID) bool {
	uid, _, _, ok := UserCtx(r)
	return ok && uid == id
}
