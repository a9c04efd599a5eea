// internal/app/features/spots/edit.go
package spots

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/policy/access"
	spotstore "github.com/dalemusser/flyspot/internal/app/store/spots"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/events"
	"github.com/dalemusser/flyspot/internal/app/system/formutil"
	"github.com/dalemusser/flyspot/internal/app/system/htmlsanitize"
	"github.com/dalemusser/flyspot/internal/app/system/imageupload"
	"github.com/dalemusser/flyspot/internal/app/system/objstore"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/dalemusser/flyspot/internal/app/system/txn"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// added returns the ids in next that are not in prev.
func added(prev, next []primitive.ObjectID) []primitive.ObjectID {
	had := make(map[primitive.ObjectID]bool, len(prev))
	for _, id := range prev {
		had[id] = true
	}
	var out []primitive.ObjectID
	for _, id := range next {
		if !had[id] {
			out = append(out, id)
		}
	}
	return out
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /spots/{spotID}                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleUpdate edits a spot. Fields that are not sent keep their value.
// Sending map_id or map_ids replaces the map set; maps being added or
// removed need add-spot permission, and only the owner or an admin may
// clear the set. delete_image_ids and new images may be combined,
// but the spot must keep at least one image.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	sp, _, actor, ok := h.loadSpot(ctx, w, r, access.SpotWrite)
	if !ok {
		return
	}
	back := spotPath(sp)
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Field("body", "could not read the request"), back)
		return
	}

	f := spotstore.Fields{Title: sp.Title, Description: sp.Description, TagIDs: sp.TagIDs}
	fields := map[string]string{}
	if in.Has("title") {
		if f.Title = htmlsanitize.Text(in.Get("title")); f.Title == "" {
			fields["title"] = "title is required"
		}
	}
	if in.Has("description") {
		if f.Description = htmlsanitize.Text(in.Get("description")); f.Description == "" {
			fields["description"] = "description is required"
		}
	}
	var tagNames []string
	if in.Has("tags") {
		if tagNames = in.List("tags"); len(tagNames) == 0 {
			fields["tags"] = "at least one tag is required"
		}
	}
	deleteIDs, ok := formutil.ObjectIDs(in.List("delete_image_ids"))
	if !ok {
		fields["delete_image_ids"] = "unknown image"
	}
	if len(fields) > 0 {
		respond.Error(w, r, h.Log, apperr.Validation(fields, in.Echo(echoFields...)), back)
		return
	}
	if in.Has("tags") {
		if f.TagIDs, err = h.resolveTags(ctx, tagNames); err != nil {
			respond.Error(w, r, h.Log, err, back)
			return
		}
	}

	prevMaps, err := h.Spots.MapIDs(ctx, sp)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	nextMaps := prevMaps
	changeMaps := in.Has("map_id") || in.Has("map_ids")
	if changeMaps {
		ids, ok := formutil.ObjectIDs(mapHexes(in))
		if !ok {
			respond.Error(w, r, h.Log, apperr.Field("map_ids", "unknown map"), back)
			return
		}
		nextFacts, err := h.Access.Maps(ctx, actor, ids)
		if err != nil {
			respond.Error(w, r, h.Log, mapsErr(err), back)
			return
		}
		nextMaps = mapIDsOf(nextFacts)
		if d := access.EvaluateAll(actor, onlyAdded(prevMaps, nextFacts), access.MapAddSpot); !d.Allowed {
			respond.Error(w, r, h.Log, d.Err(), back)
			return
		}
		if err := h.checkRemovals(ctx, actor, sp, prevMaps, nextMaps); err != nil {
			respond.Error(w, r, h.Log, err, back)
			return
		}
	}

	remaining, err := h.Images.CountRemaining(ctx, sp.ID, deleteIDs)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	var saved imageupload.Result
	if files := in.Files("images"); len(files) > 0 {
		if saved, err = h.Uploads.SaveAll(ctx, h.Uploads.SpotPrefix(), files); err != nil {
			respond.Error(w, r, h.Log, apperr.Internal(err), back)
			return
		}
		if len(saved.Files) == 0 {
			respond.Error(w, r, h.Log, apperr.Field("images", "none of the selected files is an acceptable image"), back)
			return
		}
	}
	if remaining+int64(len(saved.Files)) == 0 {
		respond.Error(w, r, h.Log, apperr.Field("images", "a spot needs at least one image"), back)
		return
	}

	var removedKeys []string
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := h.Spots.UpdateFields(ctx, sp.ID, f); err != nil {
			return err
		}
		if changeMaps {
			if err := h.Spots.SetMaps(ctx, sp.ID, nextMaps); err != nil {
				return err
			}
		}
		if _, err := h.Images.Add(ctx, sp.ID, toNewImages(saved.Files)); err != nil {
			return err
		}
		keys, err := h.Images.DeleteByIDs(ctx, sp.ID, deleteIDs)
		removedKeys = keys
		return err
	})
	if err != nil {
		h.Uploads.Discard(ctx, saved.Files)
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	objstore.DeleteAll(ctx, h.Uploads.Store(), h.Log, removedKeys)

	h.Log.Info("spot updated",
		zap.String("event", "spot_updated"),
		zap.String("spot_id", sp.ID.Hex()),
		zap.String("user_id", actor.UserID.Hex()),
		zap.Int("images_added", len(saved.Files)),
		zap.Int("images_removed", len(removedKeys)),
	)
	h.Events.MapsChanged(ctx, events.SpotsChanged, union(prevMaps, nextMaps))

	updated, err := h.Spots.Get(ctx, sp.ID)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	h.respondSaved(ctx, w, r, actor, updated, http.StatusOK, saved.Rejected, back)
}

// checkRemovals limits what an editor who reached the spot through a map
// may take away. Only the owner or an admin may detach the spot from every
// map, which makes it public; anyone else needs add-spot permission on each
// map they remove it from.
func (h *Handler) checkRemovals(ctx context.Context, actor access.Actor, sp models.Spot, prev, next []primitive.ObjectID) error {
	if actor.UserID == sp.OwnerID || actor.IsAdmin() {
		return nil
	}
	if len(next) == 0 {
		return apperr.Forbidden("only the owner can make a spot public")
	}
	removed := added(next, prev)
	if len(removed) == 0 {
		return nil
	}
	facts, err := h.Access.Maps(ctx, actor, removed)
	if err != nil {
		return mapsErr(err)
	}
	if d := access.EvaluateAll(actor, facts, access.MapAddSpot); !d.Allowed {
		return d.Err()
	}
	return nil
}

func mapsErr(err error) error {
	if errors.Is(err, access.ErrMapNotFound) {
		return apperr.NotFound("map not found")
	}
	return apperr.Internal(err)
}

// onlyAdded keeps the facts of maps not already in prev.
func onlyAdded(prev []primitive.ObjectID, next []access.MapFacts) []access.MapFacts {
	keep := make(map[primitive.ObjectID]bool)
	for _, id := range added(prev, mapIDsOf(next)) {
		keep[id] = true
	}
	var out []access.MapFacts
	for _, f := range next {
		if keep[f.ID] {
			out = append(out, f)
		}
	}
	return out
}

func union(a, b []primitive.ObjectID) []primitive.ObjectID {
	return append(append([]primitive.ObjectID{}, a...), added(a, b)...)
}
