package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"go.uber.org/zap"
)

func TestError_APIValidation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/spots", nil)
	rec := httptest.NewRecorder()

	Error(rec, req, zap.NewNop(), apperr.Validation(
		map[string]string{"title": "Title is required."},
		map[string]string{"description": "windy"},
	), "/")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Kind != apperr.KindValidation {
		t.Errorf("kind = %q", body.Error.Kind)
	}
	if body.Error.Fields["title"] == "" {
		t.Error("expected title field message")
	}
	if body.Error.Values["description"] != "windy" {
		t.Error("expected submitted values to be echoed")
	}
}

func TestError_HTMLForbiddenRedirectsToFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/maps/abc", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()

	Error(rec, req, zap.NewNop(), apperr.Forbidden("no access"), "/maps")

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/maps" {
		t.Errorf("Location = %q, want /maps", loc)
	}
}

func TestError_HTMLUnauthorizedGoesToLogin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/spots/mine", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()

	Error(rec, req, zap.NewNop(), apperr.Unauthorized("sign in"), "/")

	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/login?return=") {
		t.Errorf("Location = %q, want login redirect", loc)
	}
}

func TestError_InternalHidesDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/maps", nil)
	rec := httptest.NewRecorder()

	Error(rec, req, zap.NewNop(), errString("mongo: connection refused"), "/")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "mongo") {
		t.Errorf("body leaked internal error: %s", rec.Body.String())
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestDone(t *testing.T) {
	page := httptest.NewRequest("POST", "/maps", nil)
	page.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	Done(rec, page, http.StatusCreated, map[string]string{"id": "x"}, "/maps/x")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/maps/x" {
		t.Errorf("page: got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	api := httptest.NewRequest("POST", "/maps", nil)
	rec = httptest.NewRecorder()
	Done(rec, api, http.StatusCreated, map[string]string{"id": "x"}, "/maps/x")
	if rec.Code != http.StatusCreated {
		t.Errorf("api: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	Done(rec, api, http.StatusOK, nil, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("nil body: got %d", rec.Code)
	}
}
