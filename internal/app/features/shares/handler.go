// internal/app/features/shares/handler.go
package shares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/flyspot/internal/app/policy/access"
	mapsharestore "github.com/dalemusser/flyspot/internal/app/store/mapshares"
	userstore "github.com/dalemusser/flyspot/internal/app/store/users"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/auth"
	"github.com/dalemusser/flyspot/internal/app/system/events"
	"github.com/dalemusser/flyspot/internal/app/system/formutil"
	"github.com/dalemusser/flyspot/internal/app/system/invites"
	"github.com/dalemusser/flyspot/internal/app/system/normalize"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler manages the share rows of one map. Every endpoint requires
// MapManage, so only the owner gets here.
type Handler struct {
	Shares  *mapsharestore.Store
	Users   *userstore.Store
	Access  *access.Loader
	Invites *invites.Notifier
	Events  *events.Notifier
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, inv *invites.Notifier, notifier *events.Notifier, logger *zap.Logger) *Handler {
	return &Handler{
		Shares:  mapsharestore.New(db),
		Users:   userstore.New(db),
		Access:  access.NewLoader(db),
		Invites: inv,
		Events:  notifier,
		Log:     logger,
	}
}

// Share is a share row as the owner sees it.
type Share struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	UserID  string `json:"user_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Role    string `json:"role"`
	Pending bool   `json:"pending"`
}

func (h *Handler) render(ctx context.Context, rows []models.MapShare) ([]Share, error) {
	var ids []primitive.ObjectID
	for _, s := range rows {
		if s.InvitedUserID != nil {
			ids = append(ids, *s.InvitedUserID)
		}
	}
	names, err := h.Users.NamesByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Share, 0, len(rows))
	for _, s := range rows {
		v := Share{ID: s.ID.Hex(), Email: s.InvitedEmail, Role: s.Role, Pending: s.InvitedUserID == nil}
		if s.InvitedUserID != nil {
			v.UserID = s.InvitedUserID.Hex()
			v.Name = names[*s.InvitedUserID]
		}
		out = append(out, v)
	}
	return out, nil
}

func (h *Handler) loadMap(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.Map, bool) {
	actor := access.ActorFrom(r)
	id, err := formutil.ObjectID(r, "mapID", "map")
	if err != nil {
		respond.Error(w, r, h.Log, err, "/maps")
		return models.Map{}, false
	}
	m, f, err := h.Access.Map(ctx, actor, id, "")
	if errors.Is(err, access.ErrMapNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("map not found"), "/maps")
		return models.Map{}, false
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/maps")
		return models.Map{}, false
	}
	if d := access.Evaluate(actor, f, access.MapManage); !d.Allowed {
		respond.Error(w, r, h.Log, d.Err(), "/maps")
		return models.Map{}, false
	}
	return m, true
}

func ownerName(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		if u.Name != "" {
			return u.Name
		}
		return u.Email
	}
	return ""
}

func (h *Handler) invite(r *http.Request, m models.Map, s models.MapShare) {
	h.Invites.Send(invites.Invite{
		To:        s.InvitedEmail,
		OwnerName: ownerName(r),
		MapName:   m.Name,
		MapID:     m.ID,
		Role:      s.Role,
	})
}

func sharesPath(m models.Map) string { return "/maps/" + m.ID.Hex() + "/shares" }

/*─────────────────────────────────────────────────────────────────────────────*
| GET /maps/{mapID}/shares                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, ok := h.loadMap(ctx, w, r)
	if !ok {
		return
	}
	rows, err := h.Shares.ListByMap(ctx, m.ID)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/maps/"+m.ID.Hex())
		return
	}
	out, err := h.render(ctx, rows)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/maps/"+m.ID.Hex())
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"shares": out})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /maps/{mapID}/shares                                                    |
| {"email": …, "role": "READ"|"WRITE"}; sharing again changes the role.       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Field("body", "could not read the request"), "/maps")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, ok := h.loadMap(ctx, w, r)
	if !ok {
		return
	}
	back := sharesPath(m)
	actorEmail := access.ActorFrom(r).Email

	email := normalize.Email(in.Get("email"))
	switch {
	case email == "" || !strings.Contains(email, "@"):
		respond.Error(w, r, h.Log, apperr.Validation(map[string]string{"email": "a valid email is required"}, in.Echo("email", "role")), back+"?error=email")
		return
	case email == actorEmail:
		respond.Error(w, r, h.Log, apperr.Validation(map[string]string{"email": "you already own this map"}, in.Echo("email", "role")), back+"?error=self")
		return
	}

	var userID *primitive.ObjectID
	u, err := h.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.ID == m.OwnerID {
			respond.Error(w, r, h.Log, apperr.Validation(map[string]string{"email": "the owner cannot be invited"}, in.Echo("email", "role")), back+"?error=self")
			return
		}
		userID = &u.ID
	case !errors.Is(err, userstore.ErrNotFound):
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}

	share, created, err := h.Shares.Upsert(ctx, m.ID, email, userID, in.Get("role"))
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	h.Log.Info("map shared", zap.String("event", "map_shared"),
		zap.String("map_id", m.ID.Hex()),
		zap.String("share_id", share.ID.Hex()),
		zap.String("role", share.Role),
		zap.Bool("created", created))

	h.invite(r, m, share)
	h.Events.MapChanged(ctx, events.MapShared, m.ID)

	out, err := h.render(ctx, []models.MapShare{share})
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respond.Done(w, r, status, out[0], back)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /maps/{mapID}/shares/{shareID}                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Field("body", "could not read the request"), "/maps")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, ok := h.loadMap(ctx, w, r)
	if !ok {
		return
	}
	back := sharesPath(m)
	shareID, err := formutil.ObjectID(r, "shareID", "share")
	if err != nil {
		respond.Error(w, r, h.Log, err, back)
		return
	}
	share, err := h.Shares.UpdateRole(ctx, m.ID, shareID, in.Get("role"))
	if errors.Is(err, mapsharestore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("share not found"), back)
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	h.Log.Info("share role changed", zap.String("event", "share_updated"),
		zap.String("map_id", m.ID.Hex()),
		zap.String("share_id", share.ID.Hex()),
		zap.String("role", share.Role))

	h.invite(r, m, share)
	h.Events.MapChanged(ctx, events.MapShared, m.ID)

	out, err := h.render(ctx, []models.MapShare{share})
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	respond.Done(w, r, http.StatusOK, out[0], back)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /maps/{mapID}/shares/{shareID}                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, ok := h.loadMap(ctx, w, r)
	if !ok {
		return
	}
	back := sharesPath(m)
	shareID, err := formutil.ObjectID(r, "shareID", "share")
	if err != nil {
		respond.Error(w, r, h.Log, err, back)
		return
	}
	share, err := h.Shares.Remove(ctx, m.ID, shareID)
	if errors.Is(err, mapsharestore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("share not found"), back)
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	h.Log.Info("share removed", zap.String("event", "share_removed"),
		zap.String("map_id", m.ID.Hex()),
		zap.String("share_id", share.ID.Hex()))

	var removed []primitive.ObjectID
	if share.InvitedUserID != nil {
		removed = append(removed, *share.InvitedUserID)
	}
	h.Events.MapChanged(ctx, events.MapUnshared, m.ID, removed...)
	respond.Done(w, r, http.StatusNoContent, nil, back)
}
