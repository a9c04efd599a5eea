// internal/testutil/auth.go
package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/flyspot/internal/app/system/auth"
	"github.com/dalemusser/flyspot/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// SessionCookie is the cookie name used by NewSessionManager.
const SessionCookie = "flyspot-test-session"

// NewSessionManager returns a session manager with a fixed test key.
func NewSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager("flyspot-test-session-key-0123456789abcdef", SessionCookie, "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return sm
}

// NewAuthLimiter returns a fresh auth limiter so tests never share buckets.
func NewAuthLimiter(t *testing.T) *ratelimit.AuthLimiter {
	t.Helper()
	return ratelimit.NewAuthLimiter()
}

// SessionCookieFrom returns the session cookie set on a response, or nil.
func SessionCookieFrom(rec *ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	return nil
}
