// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"
	"strings"

	userstore "github.com/dalemusser/flyspot/internal/app/store/users"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/authz"
	"github.com/dalemusser/flyspot/internal/app/system/formutil"
	"github.com/dalemusser/flyspot/internal/app/system/imageupload"
	"github.com/dalemusser/flyspot/internal/app/system/normalize"
	"github.com/dalemusser/flyspot/internal/app/system/objstore"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.uber.org/zap"
)

type profileView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Verified    bool   `json:"verified"`
	HasPassword bool   `json:"has_password"`
	Google      bool   `json:"google_linked"`
}

func viewOf(u *models.User) profileView {
	return profileView{
		ID:          u.ID.Hex(),
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		AvatarURL:   u.AvatarURL,
		Verified:    u.IsVerified(),
		HasPassword: u.PasswordHash != "",
		Google:      u.GoogleID != "",
	}
}

func (h *Handler) load(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.Error(w, r, h.Log, apperr.Unauthorized("sign in required"), "/login")
		return nil, false
	}
	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.NotFound("user not found"), "/")
		return nil, false
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Internal(err), "/")
		return nil, false
	}
	return u, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /profile                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, ok := h.load(ctx, w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, viewOf(u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /profile                                                                |
| Updates name and email. A new email re-resolves pending shares.             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Field("body", "could not read the request"), "/profile")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, ok := h.load(ctx, w, r)
	if !ok {
		return
	}

	name := u.Name
	if in.Has("name") {
		name = normalize.Name(in.Get("name"))
	}
	email := u.Email
	if in.Has("email") {
		email = normalize.Email(in.Get("email"))
	}
	if email == "" || !strings.Contains(email, "@") {
		respond.Error(w, r, h.Log, apperr.Validation(map[string]string{"email": "a valid email is required"}, in.Echo("name", "email")), "/profile?error=invalid")
		return
	}

	if email != u.Email {
		taken, err := h.Users.EmailExistsForOther(ctx, email, u.ID)
		if err != nil {
			respond.Error(w, r, h.Log, apperr.Internal(err), "/profile")
			return
		}
		if taken {
			respond.Error(w, r, h.Log, apperr.Conflict("another account already uses this email"), "/profile?error=email_taken")
			return
		}
	}

	if err := h.Users.UpdateProfile(ctx, u.ID, name, email); err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			respond.Error(w, r, h.Log, apperr.Conflict("another account already uses this email"), "/profile?error=email_taken")
			return
		}
		respond.Error(w, r, h.Log, apperr.Internal(err), "/profile")
		return
	}
	if email != u.Email {
		if _, err := h.Shares.ClaimByEmail(ctx, u.ID, email); err != nil {
			h.Log.Warn("claim pending shares failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		}
	}

	u.Name = name
	u.Email = email
	respond.Done(w, r, http.StatusOK, viewOf(u), "/profile?saved=1")
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /profile/avatar                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleAvatarUpload(w http.ResponseWriter, r *http.Request) {
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Field("avatar", "could not read the upload"), "/profile?error=avatar")
		return
	}
	fh := in.File("avatar")
	if fh == nil {
		respond.Error(w, r, h.Log, apperr.Field("avatar", "choose an image to upload"), "/profile?error=avatar")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	u, ok := h.load(ctx, w, r)
	if !ok {
		return
	}

	up, err := h.Uploads.SaveAvatar(ctx, u.ID.Hex(), fh, h.MaxAvatarBytes)
	switch {
	case errors.Is(err, imageupload.ErrTooLarge):
		respond.Error(w, r, h.Log, apperr.Field("avatar", "image is too large"), "/profile?error=avatar")
		return
	case errors.Is(err, imageupload.ErrNotImage):
		respond.Error(w, r, h.Log, apperr.Field("avatar", "file must be an image"), "/profile?error=avatar")
		return
	case err != nil:
		respond.Error(w, r, h.Log, apperr.Internal(err), "/profile?error=avatar")
		return
	}

	prev, err := h.Users.SetAvatar(ctx, u.ID, up.URL, up.Key)
	if err != nil {
		h.Uploads.Discard(ctx, []imageupload.Uploaded{up})
		respond.Error(w, r, h.Log, apperr.Internal(err), "/profile?error=avatar")
		return
	}
	h.removeOld(ctx, prev)

	u.AvatarURL = up.URL
	respond.Done(w, r, http.StatusOK, viewOf(u), "/profile?saved=avatar")
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /profile/avatar                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleAvatarRemove(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.Error(w, r, h.Log, apperr.Unauthorized("sign in required"), "/login")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	prev, err := h.Users.ClearAvatar(ctx, uid)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			respond.Error(w, r, h.Log, apperr.NotFound("user not found"), "/")
			return
		}
		respond.Error(w, r, h.Log, apperr.Internal(err), "/profile")
		return
	}
	h.removeOld(ctx, prev)
	respond.Done(w, r, http.StatusNoContent, nil, "/profile?saved=avatar")
}

func (h *Handler) removeOld(ctx context.Context, key string) {
	if key == "" {
		return
	}
	objstore.DeleteAll(ctx, h.Uploads.Store(), h.Log, []string{key})
}
