// internal/app/features/maps/handler.go
package maps

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/features/shared/views"
	"github.com/dalemusser/flyspot/internal/app/policy/access"
	mapstore "github.com/dalemusser/flyspot/internal/app/store/maps"
	mapsharestore "github.com/dalemusser/flyspot/internal/app/store/mapshares"
	spotstore "github.com/dalemusser/flyspot/internal/app/store/spots"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/events"
	"github.com/dalemusser/flyspot/internal/app/system/formutil"
	"github.com/dalemusser/flyspot/internal/app/system/objstore"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the map endpoints.
type Handler struct {
	DB      *mongo.Database
	Maps    *mapstore.Store
	Shares  *mapsharestore.Store
	Spots   *spotstore.Store
	Access  *access.Loader
	Views   *views.Builder
	Storage objstore.Store
	Events  *events.Notifier
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, storage objstore.Store, notifier *events.Notifier, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Maps:    mapstore.New(db),
		Shares:  mapsharestore.New(db),
		Spots:   spotstore.New(db),
		Access:  access.NewLoader(db),
		Views:   views.NewBuilder(db),
		Storage: storage,
		Events:  notifier,
		Log:     logger,
	}
}

// loadMap resolves {mapID} and checks capability for the actor. On
// failure the response has been written and ok is false.
func (h *Handler) loadMap(ctx context.Context, w http.ResponseWriter, r *http.Request, capability access.Capability) (m models.Map, f access.MapFacts, actor access.Actor, ok bool) {
	actor = access.ActorFrom(r)
	id, err := formutil.ObjectID(r, "mapID", "map")
	if err != nil {
		respond.Error(w, r, h.Log, err, "/maps")
		return m, f, actor, false
	}
	m, f, err = h.Access.Map(ctx, actor, id, "")
	if errors.Is(err, access.ErrMapNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("map not found"), "/maps")
		return m, f, actor, false
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/maps")
		return m, f, actor, false
	}
	if d := access.Evaluate(actor, f, capability); !d.Allowed {
		respond.Error(w, r, h.Log, d.Err(), "/maps")
		return m, f, actor, false
	}
	return m, f, actor, true
}
