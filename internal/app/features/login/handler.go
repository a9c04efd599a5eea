// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/dalemusser/flyspot/internal/app/store/users"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/auditlog"
	"github.com/dalemusser/flyspot/internal/app/system/auth"
	"github.com/dalemusser/flyspot/internal/app/system/authutil"
	"github.com/dalemusser/flyspot/internal/app/system/formutil"
	"github.com/dalemusser/flyspot/internal/app/system/normalize"
	"github.com/dalemusser/flyspot/internal/app/system/ratelimit"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Users         *userstore.Store
	Log           *zap.Logger
	SessionMgr    *auth.SessionManager
	Limiter       *ratelimit.AuthLimiter
	Audit         *auditlog.Logger
	GoogleEnabled bool
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, limiter *ratelimit.AuthLimiter, audit *auditlog.Logger, googleEnabled bool, logger *zap.Logger) *Handler {
	return &Handler{
		Users:         userstore.New(db),
		Log:           logger,
		SessionMgr:    sessionMgr,
		Limiter:       limiter,
		Audit:         audit,
		GoogleEnabled: googleEnabled,
	}
}

var errBadCredentials = apperr.Unauthorized("invalid email or password")

type sessionView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type loginResponse struct {
	User     sessionView `json:"user"`
	Redirect string      `json:"redirect"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                   |
| Reports the state a sign-in form needs: whether someone is already signed   |
| in and whether Google sign-in is available.                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"google_enabled": h.GoogleEnabled}
	if u, ok := auth.CurrentUser(r); ok {
		resp["user"] = sessionView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
	}
	respond.JSON(w, http.StatusOK, resp)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                  |
| Credentials sign-in. The account must exist, have a password and a         |
| verified email.                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Field("body", "could not read the request"), "/login")
		return
	}
	email := normalize.Email(in.Get("email"))
	password := in.Get("password")
	returnURL := urlutil.SafeReturn(in.Get("return"), "", "/maps")
	back := "/login?error=invalid"

	if email == "" || password == "" {
		respond.Error(w, r, h.Log, apperr.Validation(map[string]string{
			"email":    "email and password are required",
			"password": "email and password are required",
		}, in.Echo("email")), back)
		return
	}
	if ok, msg := h.Limiter.Check(r, email); !ok {
		h.Audit.LoginFailedRateLimit(r.Context(), r, email, "login")
		respond.Error(w, r, h.Log, apperr.RateLimited(msg), "/login?error=rate_limited")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		h.Audit.LoginFailedUnknownEmail(ctx, r, email)
		respond.Error(w, r, h.Log, errBadCredentials, back)
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	if !authutil.CheckPassword(u.PasswordHash, password) {
		h.Audit.LoginFailedWrongPassword(ctx, r, u.ID)
		respond.Error(w, r, h.Log, errBadCredentials, back)
		return
	}
	if !u.IsVerified() {
		h.Audit.LoginFailedUnverified(ctx, r, u.ID)
		respond.Error(w, r, h.Log, apperr.Forbidden("please verify your email before signing in"), "/login?error=unverified")
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	h.Limiter.Forget(email)
	h.Audit.LoginSuccess(ctx, r, u.ID, "password")

	respond.Done(w, r, http.StatusOK, loginResponse{
		User:     sessionView{ID: u.ID.Hex(), Name: u.Name, Email: u.Email, Role: u.Role},
		Redirect: returnURL,
	}, returnURL)
}
