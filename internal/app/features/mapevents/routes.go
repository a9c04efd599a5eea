// internal/app/features/mapevents/routes.go
package mapevents

import (
	"github.com/dalemusser/flyspot/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /events.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/maps", h.ServeStream)
	return r
}
