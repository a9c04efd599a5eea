// internal/app/features/admin/audit.go
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/flyspot/internal/app/store/audit"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/paging"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type auditPage struct {
	Events []audit.Event `json:"events"`
	Next   string        `json:"next,omitempty"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/audit                                                             |
| ?category=auth|admin  ?event=<type>  ?user=<id>  ?since=<RFC3339>            |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeAudit lists recorded audit events, newest first.
func (h *Handler) ServeAudit(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	f := audit.QueryFilter{
		Category:  query.Get(r, "category"),
		EventType: query.Get(r, "event"),
		Page:      paging.Parse(r),
	}
	fields := map[string]string{}
	if s := query.Get(r, "user"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			fields["user"] = "unknown user"
		}
		f.UserID = &id
	}
	if s := query.Get(r, "since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			fields["since"] = "since must be an RFC3339 time"
		}
		f.Since = &t
	}
	if len(fields) > 0 {
		respond.Error(w, r, h.Log, apperr.Validation(fields, nil), "/admin")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, more, err := h.Trail.Query(ctx, f)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/admin")
		return
	}
	if rows == nil {
		rows = []audit.Event{}
	}
	respond.JSON(w, http.StatusOK, auditPage{
		Events: rows,
		Next:   paging.Next(rows, more, func(e audit.Event) primitive.ObjectID { return e.ID }),
	})
}
