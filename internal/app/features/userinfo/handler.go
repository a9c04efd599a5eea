// internal/app/features/userinfo/handler.go
package userinfo

import (
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/system/auth"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
)

// Handler serves the identity of the current session.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

type me struct {
	Authenticated bool   `json:"authenticated"`
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
}

// ServeMe returns who is signed in. Anonymous callers get
// authenticated=false and empty fields rather than an error.
//
//	{ "authenticated": bool, "id": "...", "name": "...", "email": "...", "role": "USER|ADMIN" }
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		respond.JSON(w, http.StatusOK, me{})
		return
	}
	respond.JSON(w, http.StatusOK, me{
		Authenticated: true,
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Role:          user.Role,
	})
}
