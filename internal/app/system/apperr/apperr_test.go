package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Unauthorized("x"), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
		{NotFound("x"), http.StatusNotFound},
		{Field("title", "required"), http.StatusUnprocessableEntity},
		{Conflict("x"), http.StatusConflict},
		{RateLimited("x"), http.StatusTooManyRequests},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Kind), func(t *testing.T) {
			if got := tt.err.Status(); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAs_Wrapped(t *testing.T) {
	base := NotFound("map not found")
	wrapped := fmt.Errorf("load: %w", base)

	got := As(wrapped)
	if got.Kind != KindNotFound {
		t.Errorf("Kind = %q, want %q", got.Kind, KindNotFound)
	}
	if !Is(wrapped, KindNotFound) {
		t.Error("Is should see through wrapping")
	}
}

func TestAs_Unclassified(t *testing.T) {
	got := As(errors.New("db down"))
	if got.Kind != KindInternal {
		t.Errorf("Kind = %q, want internal", got.Kind)
	}
	if got.Message != "internal error" {
		t.Errorf("internal errors must not leak details, got %q", got.Message)
	}
}

func TestValidation_MessageIsStable(t *testing.T) {
	err := Validation(map[string]string{
		"title":       "Title is required.",
		"description": "Description is required.",
	}, nil)
	want := "Description is required.; Title is required."
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
