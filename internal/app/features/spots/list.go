// internal/app/features/spots/list.go
package spots

import (
	"context"
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/features/shared/views"
	"github.com/dalemusser/flyspot/internal/app/policy/access"
	spotstore "github.com/dalemusser/flyspot/internal/app/store/spots"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/paging"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type listResponse struct {
	Spots []views.Spot `json:"spots"`
	Next  string       `json:"next,omitempty"`
}

// filter reads ?tag= (a tag id) and the paging parameters. An unknown
// tag id yields a filter that matches nothing rather than an error.
func filter(r *http.Request) spotstore.ListFilter {
	f := spotstore.ListFilter{Page: paging.Parse(r)}
	if s := query.Get(r, "tag"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			id = primitive.NilObjectID
		}
		f.TagID = &id
	}
	return f
}

func spotID(s models.Spot) primitive.ObjectID { return s.ID }

/*─────────────────────────────────────────────────────────────────────────────*
| GET /spots                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeList is the default map: spots with no map association, for
// anyone.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	spots, more, err := h.Spots.ListPublic(ctx, filter(r))
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	list, err := h.Views.Spots(ctx, access.ActorFrom(r), spots, "")
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	respond.JSON(w, http.StatusOK, listResponse{Spots: list, Next: paging.Next(spots, more, spotID)})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /spots/mine                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeMine lists the actor's own spots. A scoped spot whose maps the
// actor can no longer read (they left or were removed) is hidden.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	actor := access.ActorFrom(r)
	if actor.Anonymous() {
		respond.Error(w, r, h.Log, apperr.Unauthorized("sign in required"), "/login")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	spots, more, err := h.Spots.ListByOwner(ctx, actor.UserID, filter(r))
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	list, err := h.Views.Spots(ctx, actor, spots, "")
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	shown := list[:0]
	for _, v := range list {
		if v.Visibility == models.VisibilityScoped && len(v.Maps) == 0 {
			continue
		}
		shown = append(shown, v)
	}
	respond.JSON(w, http.StatusOK, listResponse{Spots: shown, Next: paging.Next(spots, more, spotID)})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /spots/{spotID}                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeSpot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sp, f, actor, ok := h.loadSpot(ctx, w, r, access.SpotRead)
	if !ok {
		return
	}
	d, err := h.Views.Detail(ctx, actor, sp, f, "")
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	respond.JSON(w, http.StatusOK, d)
}
