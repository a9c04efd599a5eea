// internal/app/features/shares/routes.go
package shares

import "github.com/go-chi/chi/v5"

// Routes is mounted at /maps/{mapID}/shares.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleAdd)
	r.Post("/{shareID}", h.HandleUpdate)
	r.Delete("/{shareID}", h.HandleRemove)
	return r
}
