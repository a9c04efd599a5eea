// internal/app/features/register/handler.go
package register

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	mapsharestore "github.com/dalemusser/flyspot/internal/app/store/mapshares"
	"github.com/dalemusser/flyspot/internal/app/store/tokens"
	userstore "github.com/dalemusser/flyspot/internal/app/store/users"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/auditlog"
	"github.com/dalemusser/flyspot/internal/app/system/authutil"
	"github.com/dalemusser/flyspot/internal/app/system/formutil"
	"github.com/dalemusser/flyspot/internal/app/system/mailer"
	"github.com/dalemusser/flyspot/internal/app/system/normalize"
	"github.com/dalemusser/flyspot/internal/app/system/ratelimit"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves sign-up and email verification.
type Handler struct {
	Users        *userstore.Store
	Shares       *mapsharestore.Store
	Tokens       *tokens.Store
	Mail         mailer.Sender
	Limiter      *ratelimit.AuthLimiter
	Audit        *auditlog.Logger
	Log          *zap.Logger
	SiteName     string
	BaseURL      string
	VerifyExpiry time.Duration
}

func NewHandler(db *mongo.Database, mail mailer.Sender, limiter *ratelimit.AuthLimiter, siteName, baseURL string, verifyExpiry time.Duration, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	if verifyExpiry <= 0 {
		verifyExpiry = tokens.DefaultVerifyExpiry
	}
	return &Handler{
		Users:        userstore.New(db),
		Shares:       mapsharestore.New(db),
		Tokens:       tokens.New(db),
		Mail:         mail,
		Limiter:      limiter,
		Audit:        audit,
		Log:          logger,
		SiteName:     siteName,
		BaseURL:      strings.TrimRight(baseURL, "/"),
		VerifyExpiry: verifyExpiry,
	}
}

type registerResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	EmailSent bool   `json:"email_sent"`
	Message   string `json:"message"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/register                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Field("body", "could not read the request"), "/register")
		return
	}
	email := normalize.Email(in.Get("email"))
	name := normalize.Name(in.Get("name"))
	password := in.Get("password")
	back := "/register?error=invalid"

	fields := map[string]string{}
	if email == "" || !strings.Contains(email, "@") {
		fields["email"] = "a valid email is required"
	}
	if err := authutil.ValidatePassword(password); err != nil {
		fields["password"] = err.Error()
	}
	if len(fields) > 0 {
		respond.Error(w, r, h.Log, apperr.Validation(fields, in.Echo("email", "name")), back)
		return
	}
	if ok, msg := h.Limiter.Check(r, email); !ok {
		respond.Error(w, r, h.Log, apperr.RateLimited(msg), "/register?error=rate_limited")
		return
	}

	hash, err := authutil.HashPassword(password)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		Email:        email,
		Name:         name,
		Role:         models.RoleUser,
		PasswordHash: hash,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		respond.Error(w, r, h.Log, apperr.Conflict("an account with this email already exists"), "/register?error=exists")
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), back)
		return
	}

	if n, err := h.Shares.ClaimByEmail(ctx, u.ID, u.Email); err != nil {
		h.Log.Warn("claim pending shares failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	} else if n > 0 {
		h.Log.Info("claimed pending shares", zap.String("user_id", u.ID.Hex()), zap.Int64("count", n))
	}

	h.Audit.Registered(ctx, r, u.ID, "password")

	resp := registerResponse{UserID: u.ID.Hex(), Email: u.Email, EmailSent: true,
		Message: "Account created. Check your email to activate it."}
	if err := h.sendVerification(ctx, u); err != nil {
		h.Log.Warn("verification email failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		resp.EmailSent = false
		resp.Message = "Account created, but the verification email could not be sent. You can request a new link."
	}
	respond.Done(w, r, http.StatusCreated, resp, "/login?registered=1")
}

func (h *Handler) sendVerification(ctx context.Context, u models.User) error {
	token, err := h.Tokens.Issue(ctx, tokens.PurposeVerifyEmail, u.Email, h.VerifyExpiry)
	if err != nil {
		return err
	}
	link := h.BaseURL + "/auth/verify?token=" + url.QueryEscape(token) + "&email=" + url.QueryEscape(u.Email)
	name := u.Name
	if name == "" {
		name = u.Email
	}
	return h.Mail.Send(ctx, mailer.BuildVerificationEmail(u.Email, mailer.VerificationEmailData{
		SiteName:  h.SiteName,
		Name:      name,
		Link:      link,
		ExpiresIn: mailer.FormatExpiry(h.VerifyExpiry),
	}))
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/verify?token=…                                                     |
| Outcomes: verified, already_verified, invalid, expired.                     |
*─────────────────────────────────────────────────────────────────────────────*/

type verifyResponse struct {
	Status string `json:"status"`
	Email  string `json:"email,omitempty"`
}

func (h *Handler) ServeVerify(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Tokens.Consume(ctx, tokens.PurposeVerifyEmail, query.Get(r, "token"))
	switch {
	case errors.Is(err, tokens.ErrExpired):
		respond.Error(w, r, h.Log, apperr.Field("token", "this verification link has expired"), "/verify-email?error=expired")
		return
	case errors.Is(err, tokens.ErrInvalid):
		respond.Error(w, r, h.Log, apperr.Field("token", "this verification link is invalid"), "/verify-email?error=invalid")
		return
	case err != nil:
		respond.Error(w, r, h.Log, apperr.Internal(err), "/verify-email?error=internal")
		return
	}

	u, err := h.Users.GetByEmail(ctx, t.Email)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.Field("token", "this verification link is invalid"), "/verify-email?error=invalid")
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/verify-email?error=internal")
		return
	}

	changed, err := h.Users.MarkVerified(ctx, u.ID)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/verify-email?error=internal")
		return
	}
	status := "verified"
	dest := "/verify-email?success=true"
	if !changed {
		status = "already_verified"
		dest = "/verify-email?already_verified=true"
	}
	h.Audit.EmailVerified(ctx, r, u.ID, status)
	respond.Done(w, r, http.StatusOK, verifyResponse{Status: status, Email: u.Email}, dest+"&email="+url.QueryEscape(u.Email))
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/verify/resend                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleResend(w http.ResponseWriter, r *http.Request) {
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Field("body", "could not read the request"), "/verify-email")
		return
	}
	email := normalize.Email(in.Get("email"))
	if email == "" {
		respond.Error(w, r, h.Log, apperr.Field("email", "email is required"), "/verify-email?error=invalid")
		return
	}
	if ok, msg := h.Limiter.Check(r, email); !ok {
		respond.Error(w, r, h.Log, apperr.RateLimited(msg), "/verify-email?error=rate_limited")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("no account uses this email"), "/verify-email?error=invalid")
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/verify-email?error=internal")
		return
	}
	if u.IsVerified() {
		respond.Error(w, r, h.Log, apperr.Field("email", "this email is already verified"), "/verify-email?already_verified=true")
		return
	}
	if err := h.sendVerification(ctx, *u); err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/verify-email?error=internal")
		return
	}
	respond.Done(w, r, http.StatusOK, map[string]string{"message": "Verification link sent."}, "/verify-email?sent=true")
}
