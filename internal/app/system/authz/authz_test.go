package authz_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/flyspot/internal/app/system/auth"
	"github.com/dalemusser/flyspot/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUserCtx_NoUser(t *testing.T) {
	_, _, _, ok := authz.UserCtx(httptest.NewRequest("GET", "/", nil))
	if ok {
		t.Error("expected ok=false without a user")
	}
}

func TestUserCtx_MalformedID(t *testing.T) {
	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{ID: "not-hex", Role: "ADMIN"})
	if _, _, _, ok := authz.UserCtx(req); ok {
		t.Error("malformed id must fail closed")
	}
	if authz.IsAdmin(req) {
		t.Error("malformed id must not be admin")
	}
}

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{"ADMIN", true},
		{"admin", true},
		{"USER", false},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{
				ID:   primitive.NewObjectID().Hex(),
				Role: tt.role,
			})
			if got := authz.IsAdmin(req); got != tt.want {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsSelf(t *testing.T) {
	id := primitive.NewObjectID()
	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{ID: id.Hex(), Role: "ADMIN"})
	if !authz.IsSelf(req, id) {
		t.Error("expected IsSelf for own id")
	}
	if authz.IsSelf(req, primitive.NewObjectID()) {
		t.Error("expected IsSelf false for another id")
	}
}
