// internal/app/features/admin/handler.go
package admin

import (
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/features/shared/views"
	"github.com/dalemusser/flyspot/internal/app/policy/access"
	"github.com/dalemusser/flyspot/internal/app/store/audit"
	spotstore "github.com/dalemusser/flyspot/internal/app/store/spots"
	tagstore "github.com/dalemusser/flyspot/internal/app/store/tags"
	userstore "github.com/dalemusser/flyspot/internal/app/store/users"
	"github.com/dalemusser/flyspot/internal/app/system/auditlog"
	"github.com/dalemusser/flyspot/internal/app/system/events"
	"github.com/dalemusser/flyspot/internal/app/system/objstore"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the site administration endpoints: users, tags and spot
// moderation. Map-level actions are never available here.
type Handler struct {
	DB      *mongo.Database
	Users   *userstore.Store
	Tags    *tagstore.Store
	Spots   *spotstore.Store
	Access  *access.Loader
	Views   *views.Builder
	Storage objstore.Store
	Events  *events.Notifier
	Trail   *audit.Store
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, storage objstore.Store, notifier *events.Notifier, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Users:   userstore.New(db),
		Tags:    tagstore.New(db),
		Spots:   spotstore.New(db),
		Access:  access.NewLoader(db),
		Views:   views.NewBuilder(db),
		Storage: storage,
		Events:  notifier,
		Trail:   audit.New(db),
		Audit:   auditLog,
		Log:     logger,
	}
}

// requireAdmin asks the evaluator for AdminPanel. Routes also sit behind
// RequireRole; this keeps handlers safe when mounted elsewhere.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (access.Actor, bool) {
	actor := access.ActorFrom(r)
	if d := access.Evaluate(actor, nil, access.AdminPanel); !d.Allowed {
		respond.Error(w, r, h.Log, d.Err(), "/")
		return actor, false
	}
	return actor, true
}
