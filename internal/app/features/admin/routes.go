// internal/app/features/admin/routes.go
package admin

import (
	"github.com/dalemusser/flyspot/internal/app/system/auth"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /admin.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(models.RoleAdmin))
	r.Get("/", h.ServeOverview)
	r.Post("/users/{userID}/role", h.HandleToggleRole)
	r.Delete("/users/{userID}", h.HandleDeleteUser)
	r.Post("/tags", h.HandleAddTag)
	r.Delete("/tags/{tagID}", h.HandleDeleteTag)
	r.Delete("/spots/{spotID}", h.HandleDeleteSpot)
	r.Get("/audit", h.ServeAudit)
	return r
}
