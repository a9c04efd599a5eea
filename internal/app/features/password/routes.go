// internal/app/features/password/routes.go
package password

import (
	"github.com/dalemusser/flyspot/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /auth/password.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Post("/forgot", h.HandleForgot)
	r.Get("/reset", h.ServeResetCheck)
	r.Post("/reset", h.HandleReset)
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/change", h.HandleChange)
	})
	return r
}
