package ratelimit

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:5555", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.3"}, "10.0.0.2:5555", "198.51.100.3"},
		{"remote", nil, "192.0.2.9:1234", "192.0.2.9"},
		{"remote without port", nil, "192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/auth/login", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuthLimiter_PerIP(t *testing.T) {
	a := NewAuthLimiter()

	r := httptest.NewRequest("POST", "/auth/login", nil)
	r.RemoteAddr = "192.0.2.44:1000"
	for i := 0; i < 20; i++ {
		if ok, _ := a.Check(r, ""); !ok {
			t.Fatalf("attempt %d should pass", i+1)
		}
	}
	if ok, msg := a.Check(r, ""); ok || msg == "" {
		t.Error("21st attempt from the same IP should be limited")
	}

	other := httptest.NewRequest("POST", "/auth/login", nil)
	other.RemoteAddr = "192.0.2.45:1000"
	if ok, _ := a.Check(other, ""); !ok {
		t.Error("a different IP has its own bucket")
	}
}

func TestAuthLimiter_PerEmail(t *testing.T) {
	a := NewAuthLimiter()

	r := httptest.NewRequest("POST", "/auth/login", nil)
	for i := 0; i < 5; i++ {
		if ok, _ := a.Check(r, "Pilot@Example.com"); !ok {
			t.Fatalf("attempt %d should pass", i+1)
		}
	}
	if ok, msg := a.Check(r, "pilot@example.com"); ok || msg == "" {
		t.Error("sixth attempt for the same email should be limited")
	}
	a.Forget("pilot@example.com")
	if ok, _ := a.Check(r, "pilot@example.com"); !ok {
		t.Error("expected allow after Forget")
	}
	if ok, _ := a.Check(r, "copilot@example.com"); !ok {
		t.Error("other emails are unaffected")
	}
}
