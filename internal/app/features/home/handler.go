// internal/app/features/home/handler.go
package home

import (
	"context"
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/features/shared/views"
	"github.com/dalemusser/flyspot/internal/app/policy/access"
	spotstore "github.com/dalemusser/flyspot/internal/app/store/spots"
	tagstore "github.com/dalemusser/flyspot/internal/app/store/tags"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/paging"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler holds dependencies needed to serve the landing document.
type Handler struct {
	Spots    *spotstore.Store
	Tags     *tagstore.Store
	Views    *views.Builder
	SiteName string
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, siteName string, logger *zap.Logger) *Handler {
	return &Handler{
		Spots:    spotstore.New(db),
		Tags:     tagstore.New(db),
		Views:    views.NewBuilder(db),
		SiteName: siteName,
		Log:      logger,
	}
}

type landing struct {
	Site     string       `json:"site"`
	SignedIn bool         `json:"signed_in"`
	Spots    []views.Spot `json:"spots"`
	Next     string       `json:"next,omitempty"`
	Tags     []views.Tag  `json:"tags"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeRoot returns the newest public spots and the tag list, which is
// what the map client draws before anyone signs in.
func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	actor := access.ActorFrom(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	spots, more, err := h.Spots.ListPublic(ctx, spotstore.ListFilter{Page: paging.First()})
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	cards, err := h.Views.Spots(ctx, actor, spots, "")
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	tags, err := h.Tags.List(ctx)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	respond.JSON(w, http.StatusOK, landing{
		Site:     h.SiteName,
		SignedIn: !actor.Anonymous(),
		Spots:    cards,
		Next:     paging.Next(spots, more, func(s models.Spot) primitive.ObjectID { return s.ID }),
		Tags:     views.Tags(tags),
	})
}
