// internal/app/features/register/routes.go
package register

import "github.com/go-chi/chi/v5"

// Routes is mounted under /auth.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.HandleRegister)
	r.Get("/verify", h.ServeVerify)
	r.Post("/verify/resend", h.HandleResend)
	return r
}
