// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/flyspot/internal/app/store/audit"
	"github.com/dalemusser/flyspot/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth covers sign-in, sign-out, registration, verification and
	// password events.
	Auth string
	// Admin covers role changes, user deletion, tag management and spot
	// moderation.
	Admin string
}

// Valid reports whether both settings name a known destination.
func (c Config) Valid() bool {
	return validDest(c.Auth) && validDest(c.Admin)
}

func validDest(s string) bool {
	switch s {
	case All, DB, Log, Off:
		return true
	}
	return false
}

// Logger writes audit events to MongoDB (via audit.Store) and to
// structured logs (via zap), as configured per category.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration. A nil Logger is a
// no-op so handlers under test can run without one.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = All
	}
	if setting == Off {
		return
	}

	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if setting == All || setting == DB {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event", event.EventType),
			)
		}
	}
}

func authEvent(r *http.Request, eventType string, userID *primitive.ObjectID, details map[string]string) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAuth,
		EventType: eventType,
		UserID:    userID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   details,
	}
}

func failed(e audit.Event, reason string) audit.Event {
	e.Success = false
	e.FailureReason = reason
	return e
}

// --- Authentication Events ---

// LoginSuccess logs a successful sign-in. method is "password" or "google".
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, method string) {
	l.Log(ctx, authEvent(r, audit.EventLoginSuccess, &userID, map[string]string{"method": method}))
}

// LoginFailedUnknownEmail logs an attempt for an email with no account.
func (l *Logger) LoginFailedUnknownEmail(ctx context.Context, r *http.Request, email string) {
	l.Log(ctx, failed(authEvent(r, audit.EventLoginFailedUnknownEmail, nil, map[string]string{"email": email}), "unknown email"))
}

func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, failed(authEvent(r, audit.EventLoginFailedWrongPassword, &userID, nil), "wrong password"))
}

func (l *Logger) LoginFailedUnverified(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, failed(authEvent(r, audit.EventLoginFailedUnverified, &userID, nil), "email not verified"))
}

// LoginFailedRateLimit logs a throttled attempt. limitType names the
// endpoint that refused it.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, email, limitType string) {
	e := authEvent(r, audit.EventLoginFailedRateLimit, nil, map[string]string{"email": email, "limit_type": limitType})
	l.Log(ctx, failed(e, "rate limited"))
}

// Logout logs a sign-out. userIDHex comes from the session and may be
// empty or malformed, in which case no user is attached.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDHex string) {
	var uid *primitive.ObjectID
	if id, err := primitive.ObjectIDFromHex(userIDHex); err == nil {
		uid = &id
	}
	l.Log(ctx, authEvent(r, audit.EventLogout, uid, nil))
}

// Registered logs a new account. method is "password" or "google".
func (l *Logger) Registered(ctx context.Context, r *http.Request, userID primitive.ObjectID, method string) {
	l.Log(ctx, authEvent(r, audit.EventRegistered, &userID, map[string]string{"method": method}))
}

// EmailVerified logs a verification link use. status is the outcome the
// user saw ("verified" or "already_verified").
func (l *Logger) EmailVerified(ctx context.Context, r *http.Request, userID primitive.ObjectID, status string) {
	l.Log(ctx, authEvent(r, audit.EventEmailVerified, &userID, map[string]string{"status": status}))
}

func (l *Logger) PasswordResetRequested(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventPasswordResetRequested, &userID, nil))
}

func (l *Logger) PasswordReset(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventPasswordReset, &userID, nil))
}

func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventPasswordChanged, &userID, nil))
}

func (l *Logger) GoogleLinked(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventGoogleLinked, &userID, nil))
}

// --- Admin Events ---

func adminEvent(r *http.Request, eventType string, actorID primitive.ObjectID, userID *primitive.ObjectID, details map[string]string) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   &actorID,
		UserID:    userID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   details,
	}
}

func (l *Logger) RoleChanged(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, from, to string) {
	l.Log(ctx, adminEvent(r, audit.EventRoleChanged, actorID, &targetUserID, map[string]string{"from": from, "to": to}))
}

// UserDeleted logs an account removal with what went with it.
func (l *Logger) UserDeleted(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, email string, maps, spots int) {
	l.Log(ctx, adminEvent(r, audit.EventUserDeleted, actorID, &targetUserID, map[string]string{
		"email": email,
		"maps":  strconv.Itoa(maps),
		"spots": strconv.Itoa(spots),
	}))
}

func (l *Logger) TagCreated(ctx context.Context, r *http.Request, actorID, tagID primitive.ObjectID, name string) {
	l.Log(ctx, adminEvent(r, audit.EventTagCreated, actorID, nil, map[string]string{"tag_id": tagID.Hex(), "name": name}))
}

func (l *Logger) TagDeleted(ctx context.Context, r *http.Request, actorID, tagID primitive.ObjectID) {
	l.Log(ctx, adminEvent(r, audit.EventTagDeleted, actorID, nil, map[string]string{"tag_id": tagID.Hex()}))
}

// SpotDeleted logs moderation. The spot owner is the affected user.
func (l *Logger) SpotDeleted(ctx context.Context, r *http.Request, actorID, spotID, ownerID primitive.ObjectID, title string) {
	l.Log(ctx, adminEvent(r, audit.EventSpotDeleted, actorID, &ownerID, map[string]string{"spot_id": spotID.Hex(), "title": title}))
}
