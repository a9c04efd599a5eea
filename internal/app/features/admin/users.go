// internal/app/features/admin/users.go
package admin

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/store/queries/cascade"
	userstore "github.com/dalemusser/flyspot/internal/app/store/users"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/formutil"
	"github.com/dalemusser/flyspot/internal/app/system/objstore"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/dalemusser/flyspot/internal/domain/models"
)

type roleResponse struct {
	Changed bool   `json:"changed"`
	Role    string `json:"role"`
}

type deleteUserResponse struct {
	Deleted      bool `json:"deleted"`
	DeletedMaps  int  `json:"deleted_maps"`
	DeletedSpots int  `json:"deleted_spots"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /admin/users/{userID}/role                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleToggleRole flips USER and ADMIN. An admin toggling their own
// account is a no-op so the site cannot lose its last admin by accident.
func (h *Handler) HandleToggleRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	id, err := formutil.ObjectID(r, "userID", "user")
	if err != nil {
		respond.Error(w, r, h.Log, err, "/admin")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("user not found"), "/admin")
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/admin")
		return
	}
	if u.ID == actor.UserID {
		respond.Done(w, r, http.StatusOK, roleResponse{Changed: false, Role: u.Role}, "/admin")
		return
	}

	next := models.RoleAdmin
	if u.Role == models.RoleAdmin {
		next = models.RoleUser
	}
	if err := h.Users.SetRole(ctx, u.ID, next); err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/admin")
		return
	}
	h.Audit.RoleChanged(ctx, r, actor.UserID, u.ID, u.Role, next)
	respond.Done(w, r, http.StatusOK, roleResponse{Changed: true, Role: next}, "/admin")
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /admin/users/{userID}                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleDeleteUser removes an account with everything it owns. Deleting
// yourself is a no-op.
func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	id, err := formutil.ObjectID(r, "userID", "user")
	if err != nil {
		respond.Error(w, r, h.Log, err, "/admin")
		return
	}
	if id == actor.UserID {
		respond.Done(w, r, http.StatusOK, deleteUserResponse{}, "/admin")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("user not found"), "/admin")
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/admin")
		return
	}
	res, err := cascade.DeleteUser(ctx, h.DB, h.Log, id)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("user not found"), "/admin")
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/admin")
		return
	}
	objstore.DeleteAll(ctx, h.Storage, h.Log, res.ImageKeys)

	h.Audit.UserDeleted(ctx, r, actor.UserID, id, u.Email, len(res.DeletedMaps), len(res.DeletedSpots))
	respond.Done(w, r, http.StatusOK, deleteUserResponse{
		Deleted:      true,
		DeletedMaps:  len(res.DeletedMaps),
		DeletedSpots: len(res.DeletedSpots),
	}, "/admin")
}
