// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	mapsharestore "github.com/dalemusser/flyspot/internal/app/store/mapshares"
	"github.com/dalemusser/flyspot/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/flyspot/internal/app/store/users"
	"github.com/dalemusser/flyspot/internal/app/system/auditlog"
	"github.com/dalemusser/flyspot/internal/app/system/auth"
	"github.com/dalemusser/flyspot/internal/app/system/normalize"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const stateTTL = 10 * time.Minute

// Identity is what FlySpot needs from a Google account.
type Identity struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Provider performs the OAuth exchange. The production implementation talks
// to Google; tests substitute a fake.
type Provider interface {
	AuthCodeURL(state string) string
	Identity(ctx context.Context, code string) (*Identity, error)
}

// GoogleProvider is the oauth2-backed Provider.
type GoogleProvider struct {
	cfg *oauth2.Config
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{cfg: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}}
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *GoogleProvider) Identity(ctx context.Context, code string) (*Identity, error) {
	token, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	client := p.cfg.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info: unexpected status %d", resp.StatusCode)
	}
	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &id, nil
}

// Handler handles Google sign-in.
type Handler struct {
	Users      *userstore.Store
	Shares     *mapsharestore.Store
	StateStore *oauthstate.Store
	SessionMgr *auth.SessionManager
	Provider   Provider
	Audit      *auditlog.Logger
	Log        *zap.Logger
}

// NewHandler returns a handler; a nil provider means Google sign-in is off.
func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, provider Provider, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      userstore.New(db),
		Shares:     mapsharestore.New(db),
		StateStore: oauthstate.New(db),
		SessionMgr: sessionMgr,
		Provider:   provider,
		Audit:      audit,
		Log:        logger,
	}
}

// IsConfigured reports whether a provider is set.
func (h *Handler) IsConfigured() bool { return h.Provider != nil }

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
| Redirects to Google's consent screen.                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		http.Redirect(w, r, "/login?error=google_not_configured", http.StatusSeeOther)
		return
	}
	state, err := generateState()
	if err != nil {
		h.Log.Error("generate oauth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	returnURL := urlutil.SafeReturn(query.Get(r, "return"), "", "/maps")
	if err := h.StateStore.Save(ctx, state, returnURL, time.Now().UTC().Add(stateTTL)); err != nil {
		h.Log.Error("save oauth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, h.Provider.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		http.Redirect(w, r, "/login?error=google_not_configured", http.StatusSeeOther)
		return
	}
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.Log.Info("google sign-in denied", zap.String("error", e))
		http.Redirect(w, r, "/login?error=google_denied", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	returnURL, valid, err := h.StateStore.Validate(ctx, q.Get("state"))
	if err != nil {
		h.Log.Error("validate oauth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}
	if !valid {
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}
	code := q.Get("code")
	if code == "" {
		http.Redirect(w, r, "/login?error=invalid_code", http.StatusSeeOther)
		return
	}

	id, err := h.Provider.Identity(ctx, code)
	if err != nil {
		h.Log.Error("google identity", zap.Error(err))
		http.Redirect(w, r, "/login?error=user_info", http.StatusSeeOther)
		return
	}
	if id.ID == "" || normalize.Email(id.Email) == "" || !id.EmailVerified {
		http.Redirect(w, r, "/login?error=google_email", http.StatusSeeOther)
		return
	}

	u, err := h.resolveUser(ctx, r, id)
	if err != nil {
		h.Log.Error("google user lookup", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}
	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		h.Log.Error("sign in", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}
	h.Audit.LoginSuccess(ctx, r, u.ID, "google")
	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/maps"), http.StatusSeeOther)
}

// resolveUser finds the account for a Google identity. Order: linked google
// id, then matching email (which gets linked), then a new verified account.
func (h *Handler) resolveUser(ctx context.Context, r *http.Request, id *Identity) (*models.User, error) {
	u, err := h.Users.GetByGoogleID(ctx, id.ID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, userstore.ErrNotFound) {
		return nil, err
	}

	u, err = h.Users.GetByEmail(ctx, id.Email)
	switch {
	case err == nil:
		if err := h.Users.LinkGoogle(ctx, u.ID, id.ID); err != nil {
			return nil, err
		}
		h.Audit.GoogleLinked(ctx, r, u.ID)
		return u, nil
	case !errors.Is(err, userstore.ErrNotFound):
		return nil, err
	}

	now := time.Now().UTC()
	created, err := h.Users.Create(ctx, models.User{
		Email:           id.Email,
		Name:            id.Name,
		Role:            models.RoleUser,
		GoogleID:        id.ID,
		EmailVerifiedAt: &now,
	})
	if err != nil {
		return nil, err
	}
	if _, err := h.Shares.ClaimByEmail(ctx, created.ID, created.Email); err != nil {
		h.Log.Warn("claim pending shares failed", zap.String("user_id", created.ID.Hex()), zap.Error(err))
	}
	h.Audit.Registered(ctx, r, created.ID, "google")
	return &created, nil
}
