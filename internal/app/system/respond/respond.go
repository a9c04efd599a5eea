// internal/app/system/respond/respond.go
package respond

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"go.uber.org/zap"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    apperr.Kind       `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Values  map[string]string `json:"values,omitempty"`
}

// JSON writes v as a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NoContent writes a 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes err to the client. Browser navigations (Accept: text/html or
// HTMX) are redirected instead: unauthorized goes to the login page with a
// return param, everything else goes to fallback. API callers get the JSON
// error body and the kind's status. Internal errors are logged.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, fallback string) {
	ae := apperr.As(err)
	if ae.Kind == apperr.KindInternal && log != nil {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(ae.Err))
	}

	if WantsHTML(r) {
		dest := fallback
		if dest == "" {
			dest = "/"
		}
		if ae.Kind == apperr.KindUnauthorized {
			dest = "/login?return=" + url.QueryEscape(r.URL.RequestURI())
		}
		if r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Redirect", dest)
			w.WriteHeader(ae.Status())
			return
		}
		http.Redirect(w, r, dest, http.StatusSeeOther)
		return
	}

	JSON(w, ae.Status(), errorBody{Error: errorDetail{
		Kind:    ae.Kind,
		Message: ae.Error(),
		Fields:  ae.Fields,
		Values:  ae.Values,
	}})
}

// WantsHTML treats HTMX requests and Accept: text/html as browser callers.
func WantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// Done finishes a successful mutation: browsers are sent to dest with a
// 303, API callers get v as JSON with status.
func Done(w http.ResponseWriter, r *http.Request, status int, v any, dest string) {
	if WantsHTML(r) && dest != "" {
		http.Redirect(w, r, dest, http.StatusSeeOther)
		return
	}
	if v == nil {
		NoContent(w)
		return
	}
	JSON(w, status, v)
}
