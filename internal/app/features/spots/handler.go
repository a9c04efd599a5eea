// internal/app/features/spots/handler.go
package spots

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/features/shared/views"
	"github.com/dalemusser/flyspot/internal/app/policy/access"
	ratingstore "github.com/dalemusser/flyspot/internal/app/store/ratings"
	spotimagestore "github.com/dalemusser/flyspot/internal/app/store/spotimages"
	spotstore "github.com/dalemusser/flyspot/internal/app/store/spots"
	tagstore "github.com/dalemusser/flyspot/internal/app/store/tags"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/auditlog"
	"github.com/dalemusser/flyspot/internal/app/system/events"
	"github.com/dalemusser/flyspot/internal/app/system/formutil"
	"github.com/dalemusser/flyspot/internal/app/system/imageupload"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the spot endpoints.
type Handler struct {
	DB      *mongo.Database
	Spots   *spotstore.Store
	Images  *spotimagestore.Store
	Tags    *tagstore.Store
	Ratings *ratingstore.Store
	Access  *access.Loader
	Views   *views.Builder
	Uploads *imageupload.Uploader
	Events  *events.Notifier
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, uploads *imageupload.Uploader, notifier *events.Notifier, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Spots:   spotstore.New(db),
		Images:  spotimagestore.New(db),
		Tags:    tagstore.New(db),
		Ratings: ratingstore.New(db),
		Access:  access.NewLoader(db),
		Views:   views.NewBuilder(db),
		Uploads: uploads,
		Events:  notifier,
		Audit:   auditLog,
		Log:     logger,
	}
}

// loadSpot resolves {spotID} and checks capability for the actor. On
// failure the response has been written and ok is false.
func (h *Handler) loadSpot(ctx context.Context, w http.ResponseWriter, r *http.Request, capability access.Capability) (sp models.Spot, f access.SpotFacts, actor access.Actor, ok bool) {
	actor = access.ActorFrom(r)
	id, err := formutil.ObjectID(r, "spotID", "spot")
	if err != nil {
		respond.Error(w, r, h.Log, err, "/")
		return sp, f, actor, false
	}
	sp, err = h.Spots.Get(ctx, id)
	if errors.Is(err, spotstore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("spot not found"), "/")
		return sp, f, actor, false
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return sp, f, actor, false
	}
	f, err = h.Access.Spot(ctx, actor, sp, "")
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return sp, f, actor, false
	}
	if d := access.Evaluate(actor, f, capability); !d.Allowed {
		respond.Error(w, r, h.Log, d.Err(), "/")
		return sp, f, actor, false
	}
	return sp, f, actor, true
}

// targetMaps loads the facts for the maps named in a form and requires
// MapAddSpot on every one of them. Nothing has been written when it
// fails.
func (h *Handler) targetMaps(ctx context.Context, actor access.Actor, hexes []string) ([]access.MapFacts, error) {
	ids, ok := formutil.ObjectIDs(hexes)
	if !ok {
		return nil, apperr.Field("map_ids", "unknown map")
	}
	facts, err := h.Access.Maps(ctx, actor, ids)
	if err != nil {
		return nil, mapsErr(err)
	}
	if d := access.EvaluateAll(actor, facts, access.MapAddSpot); !d.Allowed {
		return nil, d.Err()
	}
	return facts, nil
}

func mapIDsOf(facts []access.MapFacts) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(facts))
	for _, f := range facts {
		out = append(out, f.ID)
	}
	return out
}

// resolveTags turns submitted names into ids. Unknown names are a
// validation failure on the tags field.
func (h *Handler) resolveTags(ctx context.Context, names []string) ([]primitive.ObjectID, error) {
	ids, err := h.Tags.ResolveNames(ctx, names)
	var unknown *tagstore.UnknownTagError
	if errors.As(err, &unknown) {
		return nil, apperr.Field("tags", unknown.Error())
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return ids, nil
}

func toNewImages(files []imageupload.Uploaded) []spotimagestore.NewImage {
	out := make([]spotimagestore.NewImage, 0, len(files))
	for _, f := range files {
		out = append(out, spotimagestore.NewImage{URL: f.URL, Key: f.Key})
	}
	return out
}

func spotPath(sp models.Spot) string { return "/spots/" + sp.ID.Hex() }
