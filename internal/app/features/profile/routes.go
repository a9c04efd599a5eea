// internal/app/features/profile/routes.go
package profile

import "github.com/go-chi/chi/v5"

// Routes is mounted under /profile behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeProfile)
	r.Post("/", h.HandleUpdate)
	r.Post("/avatar", h.HandleAvatarUpload)
	r.Delete("/avatar", h.HandleAvatarRemove)
	return r
}
