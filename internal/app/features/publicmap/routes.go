// internal/app/features/publicmap/routes.go
package publicmap

import "github.com/go-chi/chi/v5"

// Routes is mounted under /m. No session is required.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{token}", h.ServeMap)
	return r
}
