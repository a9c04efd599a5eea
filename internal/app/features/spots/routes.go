// internal/app/features/spots/routes.go
package spots

import (
	"github.com/dalemusser/flyspot/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /spots. Listing and detail are open to
// anonymous callers; the access evaluator decides what they see.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/{spotID}", h.ServeSpot)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/mine", h.ServeMine)
		pr.Post("/", h.HandleCreate)
		pr.Post("/{spotID}", h.HandleUpdate)
		pr.Delete("/{spotID}", h.HandleDelete)
		pr.Post("/{spotID}/rate", h.HandleRate)
	})
	return r
}
