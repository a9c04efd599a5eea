// internal/app/features/maps/routes.go
package maps

import "github.com/go-chi/chi/v5"

// Routes is mounted under /maps behind RequireSignedIn. shares, when set,
// is mounted at /{mapID}/shares.
func Routes(h *Handler, shares chi.Router) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/writable", h.ServeWritable)

	r.Route("/{mapID}", func(mr chi.Router) {
		mr.Get("/", h.ServeMap)
		mr.Post("/", h.HandleUpdate)
		mr.Delete("/", h.HandleDelete)
		mr.Get("/spots", h.ServeSpots)
		mr.Post("/public", h.HandlePublic)
		mr.Post("/rotate", h.HandleRotate)
		mr.Post("/leave", h.HandleLeave)
		if shares != nil {
			mr.Mount("/shares", shares)
		}
	})
	return r
}
