// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"go.uber.org/zap"
)

// Handler writes the router-level errors: unknown routes, wrong methods
// and recovered panics. All of them go through respond.Error so browsers
// and API clients see the same behavior as handler errors.
type Handler struct {
	Log *zap.Logger
}

// NewHandler constructs an errors Handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, r, h.Log, apperr.NotFound("no such page"), "/")
}

// Forbidden is where RequireRole sends browsers. It always answers with
// the status itself; redirecting again would loop.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusForbidden, map[string]any{
		"error": map[string]string{"kind": "forbidden", "message": "you do not have access to that page"},
	})
}

// MethodNotAllowed answers known routes called with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusMethodNotAllowed, map[string]any{
		"error": map[string]string{"kind": "method_not_allowed", "message": r.Method + " is not allowed here"},
	})
}

// Recoverer turns a panic into an internal error response and logs it.
func (h *Handler) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.Log.Error("panic serving request",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"))
				respond.Error(w, r, nil, apperr.Internal(nil), "/")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
