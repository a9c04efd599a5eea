// internal/app/features/publicmap/handler.go
package publicmap

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/features/shared/views"
	"github.com/dalemusser/flyspot/internal/app/policy/access"
	mapstore "github.com/dalemusser/flyspot/internal/app/store/maps"
	spotstore "github.com/dalemusser/flyspot/internal/app/store/spots"
	userstore "github.com/dalemusser/flyspot/internal/app/store/users"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves read-only maps reached through a public link.
type Handler struct {
	Maps   *mapstore.Store
	Spots  *spotstore.Store
	Users  *userstore.Store
	Access *access.Loader
	Views  *views.Builder
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Maps:   mapstore.New(db),
		Spots:  spotstore.New(db),
		Users:  userstore.New(db),
		Access: access.NewLoader(db),
		Views:  views.NewBuilder(db),
		Log:    logger,
	}
}

// publicMap omits everything a link holder has no business seeing: the
// token itself, share state and management flags.
type publicMap struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	OwnerName string `json:"owner_name,omitempty"`
}

type response struct {
	Map   publicMap    `json:"map"`
	Spots []views.Spot `json:"spots"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /m/{token}                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeMap resolves the token on every request. A disabled or rotated
// link is indistinguishable from one that never existed.
func (h *Handler) ServeMap(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	token := chi.URLParam(r, "token")
	m, err := h.Maps.GetByPublicToken(ctx, token)
	if errors.Is(err, mapstore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("map not found"), "/")
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}

	actor := access.ActorFrom(r)
	f, err := h.Access.FactsFor(ctx, actor, m, token)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	if d := access.Evaluate(actor, f, access.MapRead); !d.Allowed {
		respond.Error(w, r, h.Log, apperr.NotFound("map not found"), "/")
		return
	}

	spots, err := h.Spots.ListByMap(ctx, m.ID)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	list, err := h.Views.Spots(ctx, actor, spots, token)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	names, err := h.Users.NamesByID(ctx, []primitive.ObjectID{m.OwnerID})
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}

	pm := publicMap{ID: m.ID.Hex(), Name: m.Name, Icon: m.Icon, OwnerName: names[m.OwnerID]}
	respond.JSON(w, http.StatusOK, response{Map: pm, Spots: list})
}
