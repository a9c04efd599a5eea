// internal/app/features/admin/overview.go
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/flyspot/internal/app/features/shared/views"
	spotstore "github.com/dalemusser/flyspot/internal/app/store/spots"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/paging"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userRow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

type overview struct {
	Users     []userRow    `json:"users"`
	Tags      []views.Tag  `json:"tags"`
	Spots     []views.Spot `json:"spots"`
	SpotCount int64        `json:"spot_count"`
	NextSpots string       `json:"next_spots,omitempty"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeOverview lists every user and tag and one page of spots, newest
// first (?limit=, ?after= page the spots).
func (h *Handler) ServeOverview(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	tags, err := h.Tags.List(ctx)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	spots, more, err := h.Spots.ListAll(ctx, spotstore.ListFilter{Page: paging.Parse(r)})
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	count, err := h.Spots.Count(ctx)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	cards, err := h.Views.Spots(ctx, actor, spots, "")
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}

	out := overview{
		Users:     make([]userRow, 0, len(users)),
		Tags:      views.Tags(tags),
		Spots:     cards,
		SpotCount: count,
		NextSpots: paging.Next(spots, more, func(s models.Spot) primitive.ObjectID { return s.ID }),
	}
	for _, u := range users {
		out.Users = append(out.Users, userRow{
			ID:        u.ID.Hex(),
			Name:      u.Name,
			Email:     u.Email,
			Role:      u.Role,
			Verified:  u.IsVerified(),
			CreatedAt: u.CreatedAt,
		})
	}
	respond.JSON(w, http.StatusOK, out)
}
