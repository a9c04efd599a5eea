// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	wafflelimit "github.com/dalemusser/waffle/pantry/ratelimit"
)

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	return strings.TrimSpace(wafflelimit.IPKeyFunc(r))
}

// AuthLimiter throttles credential and email-sending endpoints by client IP
// and by target email address. Both are token buckets: a full bucket allows
// a burst, then refills at burst per window.
type AuthLimiter struct {
	byIP    *wafflelimit.KeyLimiter
	byEmail *wafflelimit.KeyLimiter

	mu   sync.Mutex
	gens map[string]uint64
}

// NewAuthLimiter allows 20 hits per IP per minute and 5 per email per
// 10 minutes.
func NewAuthLimiter() *AuthLimiter {
	return &AuthLimiter{
		byIP:    wafflelimit.NewKeyLimiter(perSecond(20, time.Minute), 20, 2*time.Minute),
		byEmail: wafflelimit.NewKeyLimiter(perSecond(5, 10*time.Minute), 5, 20*time.Minute),
		gens:    make(map[string]uint64),
	}
}

func perSecond(n int, window time.Duration) float64 {
	return float64(n) / window.Seconds()
}

// Check records an attempt. It returns false with a user-facing message
// when either limit is exceeded. email may be empty.
func (a *AuthLimiter) Check(r *http.Request, email string) (bool, string) {
	if !a.byIP.Allow(ClientIP(r)) {
		return false, "Too many attempts. Please wait a minute and try again."
	}
	if email = normalize(email); email != "" && !a.byEmail.Allow(a.emailKey(email)) {
		return false, "Too many attempts for this email. Please wait a few minutes."
	}
	return true, ""
}

// Forget clears the per-email counter, e.g. after a successful login. The
// old bucket is left for the key limiter's idle sweep.
func (a *AuthLimiter) Forget(email string) {
	if email = normalize(email); email != "" {
		a.mu.Lock()
		a.gens[email]++
		a.mu.Unlock()
	}
}

func (a *AuthLimiter) emailKey(email string) string {
	a.mu.Lock()
	gen := a.gens[email]
	a.mu.Unlock()
	if gen == 0 {
		return email
	}
	return email + "#" + strconv.FormatUint(gen, 10)
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
