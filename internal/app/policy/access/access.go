// internal/app/policy/access/access.go

// Package access decides who may do what with maps and spots. Every
// handler asks Evaluate; none re-implements a rule.
package access

import (
	"net/http"
	"strings"

	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/authz"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is whoever is making the request. The zero value is anonymous.
type Actor struct {
	UserID primitive.ObjectID
	Email  string
	Role   string
}

// Anonymous reports whether no user is signed in.
func (a Actor) Anonymous() bool { return a.UserID.IsZero() }

// IsAdmin reports whether the actor holds the ADMIN role.
func (a Actor) IsAdmin() bool { return !a.Anonymous() && a.Role == models.RoleAdmin }

// ActorFrom builds the actor for the signed-in user of r.
func ActorFrom(r *http.Request) Actor {
	id, email, role, ok := authz.UserCtx(r)
	if !ok {
		return Actor{}
	}
	return Actor{UserID: id, Email: strings.ToLower(email), Role: role}
}

// Capability is an action being asked about.
type Capability int

const (
	MapRead Capability = iota + 1
	MapManage
	MapAddSpot
	MapLeave
	SpotRead
	SpotWrite
	SpotRate
	AdminPanel
)

func (c Capability) String() string {
	switch c {
	case MapRead:
		return "map-read"
	case MapManage:
		return "map-manage"
	case MapAddSpot:
		return "map-add-spot"
	case MapLeave:
		return "map-leave"
	case SpotRead:
		return "spot-read"
	case SpotWrite:
		return "spot-write"
	case SpotRate:
		return "spot-rate"
	case AdminPanel:
		return "admin-panel"
	}
	return "unknown"
}

// Resource is MapFacts, SpotFacts or nil (AdminPanel).
type Resource interface {
	resource()
}

// MapFacts is what the evaluator needs to know about one map relative to
// the actor. ShareRole is the actor's role on the map ("" when none).
// PresentedToken is the public link token the request arrived with.
type MapFacts struct {
	ID             primitive.ObjectID
	OwnerID        primitive.ObjectID
	LinkPublic     bool
	PublicToken    string
	ShareRole      string
	PresentedToken string
}

// SpotFacts describes a spot and every map it is associated with, primary
// map included.
type SpotFacts struct {
	OwnerID      primitive.ObjectID
	Visibility   models.Visibility
	PrimaryMapID *primitive.ObjectID
	Maps         []MapFacts
}

func (MapFacts) resource()  {}
func (SpotFacts) resource() {}

// Reason explains a decision.
type Reason string

const (
	ReasonOwner      Reason = "owner"
	ReasonShareRead  Reason = "share-read"
	ReasonShareWrite Reason = "share-write"
	ReasonPublicLink Reason = "public-link"
	ReasonPublicSpot Reason = "public-spot"
	ReasonAdmin      Reason = "admin"

	ReasonAnonymous     Reason = "anonymous"
	ReasonNoGrant       Reason = "no-grant"
	ReasonNotOwner      Reason = "not-owner"
	ReasonReadOnly      Reason = "read-only-share"
	ReasonLinkDisabled  Reason = "link-disabled"
	ReasonTokenMismatch Reason = "token-mismatch"
	ReasonNotAdmin      Reason = "not-admin"
	ReasonOwnerStays    Reason = "owner-cannot-leave"
	ReasonBadResource   Reason = "bad-resource"
)

// Decision is the evaluator's answer.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow(r Reason) Decision { return Decision{Allowed: true, Reason: r} }
func deny(r Reason) Decision  { return Decision{Reason: r} }

// Err maps a denial onto the error taxonomy: anonymous callers get
// Unauthorized, everyone else Forbidden. Allowed decisions return nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == ReasonAnonymous {
		return apperr.Unauthorized("sign in required")
	}
	return apperr.Forbidden("not allowed: " + string(d.Reason))
}
