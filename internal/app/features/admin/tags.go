// internal/app/features/admin/tags.go
package admin

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/features/shared/views"
	tagstore "github.com/dalemusser/flyspot/internal/app/store/tags"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/formutil"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/dalemusser/flyspot/internal/app/system/txn"
)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /admin/tags                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleAddTag creates a tag, or returns the existing one when the name
// matches case-insensitively (200 instead of 201).
func (h *Handler) HandleAddTag(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Field("body", "could not read the request"), "/admin")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	tag, created, err := h.Tags.Upsert(ctx, in.Get("name"))
	if errors.Is(err, tagstore.ErrNameRequired) {
		respond.Error(w, r, h.Log, apperr.Validation(map[string]string{"name": err.Error()}, in.Echo("name")), "/admin")
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/admin")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.Audit.TagCreated(ctx, r, actor.UserID, tag.ID, tag.Name)
	}
	respond.Done(w, r, status, views.Tag{ID: tag.ID.Hex(), Name: tag.Name}, "/admin")
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /admin/tags/{tagID}                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleDeleteTag removes a tag and pulls it from every spot.
func (h *Handler) HandleDeleteTag(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	id, err := formutil.ObjectID(r, "tagID", "tag")
	if err != nil {
		respond.Error(w, r, h.Log, err, "/admin")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		return h.Tags.Delete(ctx, id)
	})
	if errors.Is(err, tagstore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("tag not found"), "/admin")
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/admin")
		return
	}
	h.Audit.TagDeleted(ctx, r, actor.UserID, id)
	respond.Done(w, r, http.StatusNoContent, nil, "/admin")
}
