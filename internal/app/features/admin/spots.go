// internal/app/features/admin/spots.go
package admin

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/store/queries/cascade"
	spotstore "github.com/dalemusser/flyspot/internal/app/store/spots"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/events"
	"github.com/dalemusser/flyspot/internal/app/system/formutil"
	"github.com/dalemusser/flyspot/internal/app/system/objstore"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
)

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /admin/spots/{spotID}                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleDeleteSpot is moderation: any spot, whoever owns its maps.
func (h *Handler) HandleDeleteSpot(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	id, err := formutil.ObjectID(r, "spotID", "spot")
	if err != nil {
		respond.Error(w, r, h.Log, err, "/admin")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	sp, err := h.Spots.Get(ctx, id)
	if errors.Is(err, spotstore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("spot not found"), "/admin")
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/admin")
		return
	}
	mapIDs, err := h.Spots.MapIDs(ctx, sp)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/admin")
		return
	}
	res, err := cascade.DeleteSpot(ctx, h.DB, h.Log, id)
	if errors.Is(err, spotstore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("spot not found"), "/admin")
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/admin")
		return
	}
	objstore.DeleteAll(ctx, h.Storage, h.Log, res.ImageKeys)

	h.Audit.SpotDeleted(ctx, r, actor.UserID, id, sp.OwnerID, sp.Title)
	h.Events.MapsChanged(ctx, events.SpotsChanged, mapIDs)
	respond.Done(w, r, http.StatusNoContent, nil, "/admin")
}
