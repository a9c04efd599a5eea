// internal/app/features/tags/handler.go
package tags

import (
	"context"
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/features/shared/views"
	tagstore "github.com/dalemusser/flyspot/internal/app/store/tags"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the shared tag vocabulary.
type Handler struct {
	Tags *tagstore.Store
	Log  *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Tags: tagstore.New(db), Log: logger}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /tags                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Tags.List(ctx)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return
	}
	respond.JSON(w, http.StatusOK, map[string][]views.Tag{"tags": views.Tags(list)})
}
