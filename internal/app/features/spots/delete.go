// internal/app/features/spots/delete.go
package spots

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/policy/access"
	"github.com/dalemusser/flyspot/internal/app/store/queries/cascade"
	ratingstore "github.com/dalemusser/flyspot/internal/app/store/ratings"
	spotstore "github.com/dalemusser/flyspot/internal/app/store/spots"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/events"
	"github.com/dalemusser/flyspot/internal/app/system/formutil"
	"github.com/dalemusser/flyspot/internal/app/system/objstore"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /spots/{spotID}                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleDelete removes a spot with its images, ratings and map links.
// Owners, admins and WRITE invitees on the primary map may delete. An
// admin removing someone else's spot is recorded in the audit log.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	sp, _, actor, ok := h.loadSpot(ctx, w, r, access.SpotWrite)
	if !ok {
		return
	}
	mapIDs, err := h.Spots.MapIDs(ctx, sp)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), spotPath(sp))
		return
	}
	res, err := cascade.DeleteSpot(ctx, h.DB, h.Log, sp.ID)
	if errors.Is(err, spotstore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("spot not found"), "/")
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), spotPath(sp))
		return
	}
	objstore.DeleteAll(ctx, h.Uploads.Store(), h.Log, res.ImageKeys)

	moderation := actor.IsAdmin() && actor.UserID != sp.OwnerID
	h.Log.Info("spot deleted",
		zap.String("event", "spot_deleted"),
		zap.String("spot_id", sp.ID.Hex()),
		zap.String("user_id", actor.UserID.Hex()),
		zap.Bool("moderation", moderation),
	)
	if moderation {
		h.Audit.SpotDeleted(ctx, r, actor.UserID, sp.ID, sp.OwnerID, sp.Title)
	}
	h.Events.MapsChanged(ctx, events.SpotsChanged, mapIDs)

	dest := "/"
	if len(mapIDs) > 0 {
		dest = "/maps/" + mapIDs[0].Hex()
	}
	respond.Done(w, r, http.StatusNoContent, nil, dest)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /spots/{spotID}/rate                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

type rateResponse struct {
	Rating   ratingstore.Summary `json:"rating"`
	MyRating int                 `json:"my_rating"`
}

// HandleRate records the actor's rating, replacing any earlier one.
func (h *Handler) HandleRate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sp, _, actor, ok := h.loadSpot(ctx, w, r, access.SpotRate)
	if !ok {
		return
	}
	back := spotPath(sp)
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Field("body", "could not read the request"), back)
		return
	}
	value, ok := in.Int("value")
	if !ok {
		respond.Error(w, r, h.Log, apperr.Field("value", "rating is required"), back)
		return
	}
	err = h.Ratings.Upsert(ctx, sp.ID, actor.UserID, value)
	if errors.Is(err, ratingstore.ErrOutOfRange) {
		respond.Error(w, r, h.Log, apperr.Field("value", err.Error()), back)
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	sum, err := h.Ratings.Summary(ctx, sp.ID)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	respond.Done(w, r, http.StatusOK, rateResponse{Rating: sum, MyRating: value}, back)
}
