// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"github.com/dalemusser/flyspot/internal/app/system/paging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Event categories
const (
	CategoryAuth  = "auth"
	CategoryAdmin = "admin"
)

// Auth event types
const (
	EventLoginSuccess             = "login_success"
	EventLoginFailedUnknownEmail  = "login_failed_unknown_email"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedUnverified    = "login_failed_unverified"
	EventLoginFailedRateLimit     = "login_failed_rate_limit"
	EventLogout                   = "logout"
	EventRegistered               = "registered"
	EventEmailVerified            = "email_verified"
	EventPasswordResetRequested   = "password_reset_requested"
	EventPasswordReset            = "password_reset"
	EventPasswordChanged          = "password_changed"
	EventGoogleLinked             = "google_linked"
)

// Admin event types
const (
	EventRoleChanged = "role_changed"
	EventUserDeleted = "user_deleted"
	EventTagCreated  = "tag_created"
	EventTagDeleted  = "tag_deleted"
	EventSpotDeleted = "spot_deleted"
)

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`

	// Event classification
	Category  string `bson:"category" json:"category"`
	EventType string `bson:"event_type" json:"event_type"`

	// Who
	UserID  *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`   // affected user
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty" json:"actor_id,omitempty"` // who performed an admin action

	// Context
	IP        string `bson:"ip" json:"ip"`
	UserAgent string `bson:"user_agent,omitempty" json:"user_agent,omitempty"`

	// Outcome
	Success       bool   `bson:"success" json:"success"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter narrows a listing. Results are newest first and keyset
// paged on _id.
type QueryFilter struct {
	UserID    *primitive.ObjectID
	Category  string
	EventType string
	Since     *time.Time
	Page      paging.Page
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

func (f QueryFilter) query() bson.M {
	q := bson.M{}
	if f.UserID != nil {
		q["user_id"] = *f.UserID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	if f.Since != nil {
		q["timestamp"] = bson.M{"$gte": *f.Since}
	}
	return q
}

// Query returns one page of matching events and whether more follow.
func (s *Store) Query(ctx context.Context, f QueryFilter) ([]Event, bool, error) {
	cur, err := s.c.Find(ctx, f.Page.Filter(f.query()), f.Page.FindOptions())
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, false, err
	}
	more := paging.Trim(f.Page, &events)
	return events, more, nil
}

// Count returns how many events match f, ignoring its page.
func (s *Store) Count(ctx context.Context, f QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}

// FailedLogins returns failed sign-in attempts since the given time.
func (s *Store) FailedLogins(ctx context.Context, since time.Time, page paging.Page) ([]Event, bool, error) {
	q := bson.M{
		"category":  CategoryAuth,
		"success":   false,
		"timestamp": bson.M{"$gte": since},
	}
	cur, err := s.c.Find(ctx, page.Filter(q), page.FindOptions())
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, false, err
	}
	return events, paging.Trim(page, &events), nil
}
