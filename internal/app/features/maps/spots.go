// internal/app/features/maps/spots.go
package maps

import (
	"context"
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/features/shared/views"
	"github.com/dalemusser/flyspot/internal/app/policy/access"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
)

type mapSpotsResponse struct {
	Map         views.Map    `json:"map"`
	Spots       []views.Spot `json:"spots"`
	CanAddSpots bool         `json:"can_add_spots"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /maps/{mapID}/spots                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeSpots(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, f, actor, ok := h.loadMap(ctx, w, r, access.MapRead)
	if !ok {
		return
	}
	spots, err := h.Spots.ListByMap(ctx, m.ID)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/maps")
		return
	}
	list, err := h.Views.Spots(ctx, actor, spots, "")
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/maps")
		return
	}
	v := views.MapFor(m, f, actor)
	respond.JSON(w, http.StatusOK, mapSpotsResponse{Map: v, Spots: list, CanAddSpots: v.CanAddSpots})
}
