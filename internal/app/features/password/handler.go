// internal/app/features/password/handler.go
package password

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/flyspot/internal/app/store/tokens"
	userstore "github.com/dalemusser/flyspot/internal/app/store/users"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/auditlog"
	"github.com/dalemusser/flyspot/internal/app/system/authutil"
	"github.com/dalemusser/flyspot/internal/app/system/authz"
	"github.com/dalemusser/flyspot/internal/app/system/formutil"
	"github.com/dalemusser/flyspot/internal/app/system/mailer"
	"github.com/dalemusser/flyspot/internal/app/system/normalize"
	"github.com/dalemusser/flyspot/internal/app/system/ratelimit"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// forgotMessage is returned whether or not the account exists.
const forgotMessage = "If an account with this email exists, a reset link is on its way."

// Handler serves forgot, reset and change password.
type Handler struct {
	Users       *userstore.Store
	Tokens      *tokens.Store
	Mail        mailer.Sender
	Limiter     *ratelimit.AuthLimiter
	Audit       *auditlog.Logger
	Log         *zap.Logger
	SiteName    string
	BaseURL     string
	ResetExpiry time.Duration
}

func NewHandler(db *mongo.Database, mail mailer.Sender, limiter *ratelimit.AuthLimiter, siteName, baseURL string, resetExpiry time.Duration, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	if resetExpiry <= 0 {
		resetExpiry = tokens.DefaultResetExpiry
	}
	return &Handler{
		Users:       userstore.New(db),
		Tokens:      tokens.New(db),
		Mail:        mail,
		Limiter:     limiter,
		Audit:       audit,
		Log:         logger,
		SiteName:    siteName,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		ResetExpiry: resetExpiry,
	}
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, tokens.ErrExpired):
		return apperr.Field("token", "this reset link has expired")
	case errors.Is(err, tokens.ErrInvalid):
		return apperr.Field("token", "this reset link is invalid")
	}
	return apperr.Internal(err)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/password/forgot                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Field("body", "could not read the request"), "/forgot-password")
		return
	}
	email := normalize.Email(in.Get("email"))
	if email == "" {
		respond.Error(w, r, h.Log, apperr.Field("email", "email is required"), "/forgot-password?error=invalid")
		return
	}
	if ok, msg := h.Limiter.Check(r, email); !ok {
		respond.Error(w, r, h.Log, apperr.RateLimited(msg), "/forgot-password?error=rate_limited")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	done := map[string]string{"message": forgotMessage}
	u, err := h.Users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Done(w, r, http.StatusOK, done, "/forgot-password?sent=true")
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/forgot-password?error=internal")
		return
	}
	if !u.IsVerified() {
		respond.Error(w, r, h.Log, apperr.Field("email", "verify your email address before resetting the password"), "/forgot-password?error=unverified")
		return
	}

	token, err := h.Tokens.Issue(ctx, tokens.PurposeResetPassword, u.Email, h.ResetExpiry)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/forgot-password?error=internal")
		return
	}
	msg := mailer.BuildResetPasswordEmail(u.Email, mailer.ResetPasswordEmailData{
		SiteName:  h.SiteName,
		Link:      h.BaseURL + "/reset-password?token=" + url.QueryEscape(token),
		ExpiresIn: mailer.FormatExpiry(h.ResetExpiry),
	})
	if err := h.Mail.Send(ctx, msg); err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/forgot-password?error=internal")
		return
	}
	h.Audit.PasswordResetRequested(ctx, r, u.ID)
	respond.Done(w, r, http.StatusOK, done, "/forgot-password?sent=true")
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/password/reset?token=…                                             |
| Checks a reset token without using it.                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeResetCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	token := query.Get(r, "token")
	if _, err := h.Tokens.Peek(ctx, tokens.PurposeResetPassword, token); err != nil {
		respond.Error(w, r, h.Log, tokenError(err), "/reset-password?error=invalid")
		return
	}
	respond.Done(w, r, http.StatusOK, map[string]bool{"valid": true}, "/reset-password?token="+url.QueryEscape(token))
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/password/reset                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Field("body", "could not read the request"), "/reset-password")
		return
	}
	token := in.Get("token")
	pw := in.Get("password")
	back := "/reset-password?token=" + url.QueryEscape(token) + "&error=invalid"

	if token == "" {
		respond.Error(w, r, h.Log, apperr.Field("token", "reset token is required"), back)
		return
	}
	if err := authutil.ValidatePassword(pw); err != nil {
		respond.Error(w, r, h.Log, apperr.Field("password", err.Error()), back)
		return
	}
	hash, err := authutil.HashPassword(pw)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Tokens.Consume(ctx, tokens.PurposeResetPassword, token)
	if err != nil {
		respond.Error(w, r, h.Log, tokenError(err), back)
		return
	}
	u, err := h.Users.GetByEmail(ctx, t.Email)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.Field("token", "this reset link is invalid"), back)
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	if err := h.Users.SetPassword(ctx, u.ID, hash); err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	h.Audit.PasswordReset(ctx, r, u.ID)
	respond.Done(w, r, http.StatusOK, map[string]string{"message": "Password reset. You can now sign in."}, "/login?reset=1")
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/password/change (signed in)                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleChange(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.Error(w, r, h.Log, apperr.Unauthorized("sign in required"), "/login")
		return
	}
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Field("body", "could not read the request"), "/profile")
		return
	}
	current := in.Get("current_password")
	next := in.Get("new_password")
	back := "/profile?error=password"

	if current == "" {
		respond.Error(w, r, h.Log, apperr.Field("current_password", "current password is required"), back)
		return
	}
	if err := authutil.ValidatePassword(next); err != nil {
		respond.Error(w, r, h.Log, apperr.Field("new_password", err.Error()), back)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("user not found"), back)
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	if u.PasswordHash == "" {
		respond.Error(w, r, h.Log, apperr.Field("current_password", "this account signs in with Google and has no password"), back)
		return
	}
	if !authutil.CheckPassword(u.PasswordHash, current) {
		respond.Error(w, r, h.Log, apperr.Field("current_password", "current password is incorrect"), back)
		return
	}
	hash, err := authutil.HashPassword(next)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	if err := h.Users.SetPassword(ctx, u.ID, hash); err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}
	h.Audit.PasswordChanged(ctx, r, u.ID)
	respond.Done(w, r, http.StatusOK, map[string]string{"message": "Password changed."}, "/profile?changed=password")
}
