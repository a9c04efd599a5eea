// internal/app/features/tags/routes.go
package tags

import "github.com/go-chi/chi/v5"

// Routes is mounted under /tags. Adding and deleting tags lives in the
// admin feature.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	return r
}
