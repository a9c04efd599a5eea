// internal/app/features/spots/create.go
package spots

import (
	"context"
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/features/shared/views"
	"github.com/dalemusser/flyspot/internal/app/policy/access"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/events"
	"github.com/dalemusser/flyspot/internal/app/system/formutil"
	"github.com/dalemusser/flyspot/internal/app/system/htmlsanitize"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/dalemusser/flyspot/internal/app/system/txn"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// savedResponse is returned by create and edit. RejectedFiles counts
// uploads that were skipped because they were not acceptable images.
type savedResponse struct {
	Spot          views.SpotDetail `json:"spot"`
	RejectedFiles int              `json:"rejected_files"`
}

var echoFields = []string{"title", "description", "tags", "latitude", "longitude", "map_id", "map_ids"}

// coords reads and range-checks latitude and longitude into fields.
func coords(in formutil.Values, fields map[string]string) (lat, lng float64) {
	lat, ok := in.Float("latitude")
	if !ok {
		fields["latitude"] = "latitude is required"
	} else if lat < -90 || lat > 90 {
		fields["latitude"] = "latitude must be between -90 and 90"
	}
	lng, ok = in.Float("longitude")
	if !ok {
		fields["longitude"] = "longitude is required"
	} else if lng < -180 || lng > 180 {
		fields["longitude"] = "longitude must be between -180 and 180"
	}
	return lat, lng
}

// mapHexes is map_id (the primary map, if sent) followed by map_ids.
func mapHexes(in formutil.Values) []string {
	var out []string
	if id := in.Get("map_id"); id != "" {
		out = append(out, id)
	}
	return append(out, in.List("map_ids")...)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /spots                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleCreate takes a multipart form: title, description, tags (names),
// latitude, longitude, optional map_id / map_ids and one or more images.
// Add-spot permission is checked on every target map before anything is
// written.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor := access.ActorFrom(r)
	if actor.Anonymous() {
		respond.Error(w, r, h.Log, apperr.Unauthorized("sign in required"), "/login")
		return
	}
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Field("body", "could not read the request"), "/spots/new")
		return
	}

	fields := map[string]string{}
	title := htmlsanitize.Text(in.Get("title"))
	if title == "" {
		fields["title"] = "title is required"
	}
	description := htmlsanitize.Text(in.Get("description"))
	if description == "" {
		fields["description"] = "description is required"
	}
	tagNames := in.List("tags")
	if len(tagNames) == 0 {
		fields["tags"] = "at least one tag is required"
	}
	files := in.Files("images")
	if len(files) == 0 {
		fields["images"] = "at least one image is required"
	}
	lat, lng := coords(in, fields)
	if len(fields) > 0 {
		respond.Error(w, r, h.Log, apperr.Validation(fields, in.Echo(echoFields...)), "/spots/new")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	targets, err := h.targetMaps(ctx, actor, mapHexes(in))
	if err != nil {
		respond.Error(w, r, h.Log, err, "/spots/new")
		return
	}
	tagIDs, err := h.resolveTags(ctx, tagNames)
	if err != nil {
		respond.Error(w, r, h.Log, err, "/spots/new")
		return
	}

	saved, err := h.Uploads.SaveAll(ctx, h.Uploads.SpotPrefix(), files)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/spots/new")
		return
	}
	if len(saved.Files) == 0 {
		e := apperr.Validation(map[string]string{"images": "none of the selected files is an acceptable image"}, in.Echo(echoFields...))
		respond.Error(w, r, h.Log, e, "/spots/new")
		return
	}

	mapIDs := mapIDsOf(targets)
	var sp models.Spot
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		sp, err = h.Spots.Create(ctx, models.Spot{
			Title:       title,
			Description: description,
			Latitude:    lat,
			Longitude:   lng,
			OwnerID:     actor.UserID,
			TagIDs:      tagIDs,
		}, mapIDs)
		if err != nil {
			return err
		}
		_, err = h.Images.Add(ctx, sp.ID, toNewImages(saved.Files))
		return err
	})
	if err != nil {
		h.Uploads.Discard(ctx, saved.Files)
		respond.Error(w, r, h.Log, apperr.Internal(err), "/spots/new")
		return
	}

	h.Log.Info("spot created",
		zap.String("event", "spot_created"),
		zap.String("spot_id", sp.ID.Hex()),
		zap.String("user_id", actor.UserID.Hex()),
		zap.Int("maps", len(mapIDs)),
		zap.Int("images", len(saved.Files)),
		zap.Int("rejected_files", saved.Rejected),
	)
	h.Events.MapsChanged(ctx, events.SpotsChanged, mapIDs)

	h.respondSaved(ctx, w, r, actor, sp, http.StatusCreated, saved.Rejected, createdDest(mapIDs))
}

func createdDest(mapIDs []primitive.ObjectID) string {
	if len(mapIDs) > 0 {
		return "/maps/" + mapIDs[0].Hex()
	}
	return "/"
}

// respondSaved renders the stored spot for the actor.
func (h *Handler) respondSaved(ctx context.Context, w http.ResponseWriter, r *http.Request, actor access.Actor, sp models.Spot, status, rejected int, dest string) {
	f, err := h.Access.Spot(ctx, actor, sp, "")
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), dest)
		return
	}
	d, err := h.Views.Detail(ctx, actor, sp, f, "")
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), dest)
		return
	}
	respond.Done(w, r, status, savedResponse{Spot: d, RejectedFiles: rejected}, dest)
}
