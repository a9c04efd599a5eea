// internal/app/features/maps/list.go
package maps

import (
	"context"
	"net/http"
	"sort"

	"github.com/dalemusser/flyspot/internal/app/features/shared/views"
	"github.com/dalemusser/flyspot/internal/app/policy/access"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type listResponse struct {
	Maps []views.Map `json:"maps"`
}

// visibleMaps is every map the actor owns or holds a share on. Owned maps
// come first; each group is sorted by name.
func (h *Handler) visibleMaps(ctx context.Context, actor access.Actor) ([]views.Map, error) {
	owned, err := h.Maps.OwnedIDs(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	shares, err := h.Shares.ListForUser(ctx, actor.UserID, actor.Email)
	if err != nil {
		return nil, err
	}
	ids := append([]primitive.ObjectID{}, owned...)
	for _, s := range shares {
		ids = append(ids, s.MapID)
	}

	byID, facts, err := h.Access.Lookup(ctx, actor, ids, "")
	if err != nil {
		return nil, err
	}
	ms := make([]models.Map, 0, len(byID))
	for _, m := range byID {
		ms = append(ms, m)
	}
	sort.SliceStable(ms, func(i, j int) bool {
		oi, oj := ms[i].OwnerID == actor.UserID, ms[j].OwnerID == actor.UserID
		if oi != oj {
			return oi
		}
		return text.Fold(ms[i].Name) < text.Fold(ms[j].Name)
	})
	return h.Views.Maps(ctx, actor, ms, facts)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /maps                                                                    |
| Owned and shared maps with the actor's role on each.                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor := access.ActorFrom(r)
	if actor.Anonymous() {
		respond.Error(w, r, h.Log, apperr.Unauthorized("sign in required"), "/login")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.visibleMaps(ctx, actor)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	respond.JSON(w, http.StatusOK, listResponse{Maps: list})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /maps/writable                                                           |
| Maps the actor may add spots to (owned or WRITE share).                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeWritable(w http.ResponseWriter, r *http.Request) {
	actor := access.ActorFrom(r)
	if actor.Anonymous() {
		respond.Error(w, r, h.Log, apperr.Unauthorized("sign in required"), "/login")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	all, err := h.visibleMaps(ctx, actor)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	out := make([]views.Map, 0, len(all))
	for _, m := range all {
		if m.CanAddSpots {
			out = append(out, m)
		}
	}
	respond.JSON(w, http.StatusOK, listResponse{Maps: out})
}
