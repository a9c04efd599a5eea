// internal/app/features/maps/manage.go
package maps

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/features/shared/views"
	"github.com/dalemusser/flyspot/internal/app/policy/access"
	mapstore "github.com/dalemusser/flyspot/internal/app/store/maps"
	"github.com/dalemusser/flyspot/internal/app/store/queries/cascade"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/events"
	"github.com/dalemusser/flyspot/internal/app/system/formutil"
	"github.com/dalemusser/flyspot/internal/app/system/objstore"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func mapPath(v views.Map) string { return "/maps/" + v.ID }

/*─────────────────────────────────────────────────────────────────────────────*
| POST /maps                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor := access.ActorFrom(r)
	if actor.Anonymous() {
		respond.Error(w, r, h.Log, apperr.Unauthorized("sign in required"), "/login")
		return
	}
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Field("body", "could not read the request"), "/maps")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Maps.Create(ctx, actor.UserID, in.Get("name"), in.Get("icon"))
	if errors.Is(err, mapstore.ErrNameRequired) {
		respond.Error(w, r, h.Log, apperr.Validation(map[string]string{"name": "map name is required"}, in.Echo("name", "icon")), "/maps?error=name")
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/maps")
		return
	}
	h.Log.Info("map created", zap.String("event", "map_created"), zap.String("map_id", m.ID.Hex()), zap.String("user_id", actor.UserID.Hex()))
	h.Events.MapChanged(ctx, events.MapCreated, m.ID)

	f, err := h.Access.FactsFor(ctx, actor, m, "")
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/maps")
		return
	}
	v := views.MapFor(m, f, actor)
	respond.Done(w, r, http.StatusCreated, v, mapPath(v))
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /maps/{mapID}                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeMap(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, f, actor, ok := h.loadMap(ctx, w, r, access.MapRead)
	if !ok {
		return
	}
	out, err := h.Views.Maps(ctx, actor, []models.Map{m}, map[primitive.ObjectID]access.MapFacts{m.ID: f})
	if err != nil || len(out) != 1 {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/maps")
		return
	}
	respond.JSON(w, http.StatusOK, out[0])
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /maps/{mapID}  (owner)                                                  |
| Rename and set the icon.                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Field("body", "could not read the request"), "/maps")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, f, actor, ok := h.loadMap(ctx, w, r, access.MapManage)
	if !ok {
		return
	}
	name, icon := m.Name, m.Icon
	if in.Has("name") {
		name = in.Get("name")
	}
	if in.Has("icon") {
		icon = in.Get("icon")
	}
	back := "/maps/" + m.ID.Hex()

	updated, err := h.Maps.Update(ctx, m.ID, name, icon)
	if errors.Is(err, mapstore.ErrNameRequired) {
		respond.Error(w, r, h.Log, apperr.Validation(map[string]string{"name": "map name is required"}, in.Echo("name", "icon")), back+"?error=name")
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	h.Events.MapChanged(ctx, events.MapUpdated, m.ID)
	respond.Done(w, r, http.StatusOK, views.MapFor(updated, f, actor), back)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /maps/{mapID}  (owner)                                                |
*─────────────────────────────────────────────────────────────────────────────*/

type deleteResponse struct {
	DeletedSpots  int `json:"deleted_spots"`
	DetachedSpots int `json:"detached_spots"`
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	m, _, actor, ok := h.loadMap(ctx, w, r, access.MapManage)
	if !ok {
		return
	}
	audience := h.Events.Audience(ctx, m.ID)

	res, err := cascade.DeleteMap(ctx, h.DB, h.Log, m.ID, actor.UserID)
	if errors.Is(err, mapstore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("map not found"), "/maps")
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/maps")
		return
	}
	objstore.DeleteAll(ctx, h.Storage, h.Log, res.ImageKeys)

	h.Log.Info("map deleted", zap.String("event", "map_deleted"),
		zap.String("map_id", m.ID.Hex()),
		zap.String("user_id", actor.UserID.Hex()),
		zap.Int("deleted_spots", len(res.DeletedSpots)),
		zap.Int("detached_spots", len(res.DetachedSpots)))
	h.Events.Users(ctx, events.MapDeleted, m.ID, audience)

	respond.Done(w, r, http.StatusOK, deleteResponse{
		DeletedSpots:  len(res.DeletedSpots),
		DetachedSpots: len(res.DetachedSpots),
	}, "/maps")
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /maps/{mapID}/public  (owner)                                           |
| {"enabled": true|false}                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandlePublic(w http.ResponseWriter, r *http.Request) {
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Field("body", "could not read the request"), "/maps")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, f, actor, ok := h.loadMap(ctx, w, r, access.MapManage)
	if !ok {
		return
	}
	enable := in.Bool("enabled")
	var updated models.Map
	if enable {
		updated, err = h.Maps.EnablePublic(ctx, m.ID)
	} else {
		updated, err = h.Maps.DisablePublic(ctx, m.ID)
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/maps/"+m.ID.Hex())
		return
	}
	h.Log.Info("map link toggled", zap.String("event", "map_link_toggled"), zap.String("map_id", m.ID.Hex()), zap.Bool("enabled", enable))
	h.Events.MapChanged(ctx, events.MapUpdated, m.ID)
	respond.Done(w, r, http.StatusOK, views.MapFor(updated, f, actor), "/maps/"+m.ID.Hex())
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /maps/{mapID}/rotate  (owner)                                           |
| Issues a new public token; the old one stops resolving.                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, f, actor, ok := h.loadMap(ctx, w, r, access.MapManage)
	if !ok {
		return
	}
	updated, err := h.Maps.RotateToken(ctx, m.ID)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/maps/"+m.ID.Hex())
		return
	}
	h.Log.Info("map link rotated", zap.String("event", "map_link_rotated"), zap.String("map_id", m.ID.Hex()))
	h.Events.MapChanged(ctx, events.MapUpdated, m.ID)
	respond.Done(w, r, http.StatusOK, views.MapFor(updated, f, actor), "/maps/"+m.ID.Hex())
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /maps/{mapID}/leave  (invitee)                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, _, actor, ok := h.loadMap(ctx, w, r, access.MapLeave)
	if !ok {
		return
	}
	if _, err := h.Shares.Leave(ctx, m.ID, actor.UserID, actor.Email); err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/maps")
		return
	}
	h.Log.Info("map left", zap.String("event", "map_left"), zap.String("map_id", m.ID.Hex()), zap.String("user_id", actor.UserID.Hex()))
	h.Events.MapChanged(ctx, events.MapUnshared, m.ID, actor.UserID)
	respond.Done(w, r, http.StatusNoContent, nil, "/maps")
}
