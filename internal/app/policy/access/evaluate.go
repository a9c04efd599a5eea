// internal/app/policy/access/evaluate.go
package access

import (
	"crypto/subtle"

	"github.com/dalemusser/flyspot/internal/domain/models"
)

// Evaluate answers whether actor may perform capability on res. It is
// pure: callers load the facts first (see Loader).
func Evaluate(actor Actor, res Resource, capability Capability) Decision {
	if capability == AdminPanel {
		return adminPanel(actor)
	}

	switch r := res.(type) {
	case MapFacts:
		switch capability {
		case MapRead:
			return mapRead(actor, r)
		case MapManage:
			return mapManage(actor, r)
		case MapAddSpot:
			return mapAddSpot(actor, r)
		case MapLeave:
			return mapLeave(actor, r)
		}
	case SpotFacts:
		switch capability {
		case SpotRead:
			return spotRead(actor, r)
		case SpotWrite:
			return spotWrite(actor, r)
		case SpotRate:
			if actor.Anonymous() {
				return deny(ReasonAnonymous)
			}
			return spotRead(actor, r)
		}
	}
	return deny(ReasonBadResource)
}

// EvaluateAll requires capability on every map. It returns the first
// denial, or the last grant when all pass. An empty set is allowed.
func EvaluateAll(actor Actor, maps []MapFacts, capability Capability) Decision {
	d := allow(ReasonOwner)
	for _, m := range maps {
		d = Evaluate(actor, m, capability)
		if !d.Allowed {
			return d
		}
	}
	return d
}

func adminPanel(a Actor) Decision {
	if a.Anonymous() {
		return deny(ReasonAnonymous)
	}
	if a.IsAdmin() {
		return allow(ReasonAdmin)
	}
	return deny(ReasonNotAdmin)
}

func isOwner(a Actor, m MapFacts) bool {
	return !a.Anonymous() && a.UserID == m.OwnerID
}

func mapRead(a Actor, m MapFacts) Decision {
	if isOwner(a, m) {
		return allow(ReasonOwner)
	}
	if !a.Anonymous() {
		switch m.ShareRole {
		case models.ShareWrite:
			return allow(ReasonShareWrite)
		case models.ShareRead:
			return allow(ReasonShareRead)
		}
	}
	if m.PresentedToken != "" {
		if !m.LinkPublic {
			return deny(ReasonLinkDisabled)
		}
		if m.PublicToken == "" || subtle.ConstantTimeCompare([]byte(m.PresentedToken), []byte(m.PublicToken)) != 1 {
			return deny(ReasonTokenMismatch)
		}
		return allow(ReasonPublicLink)
	}
	if a.Anonymous() {
		return deny(ReasonAnonymous)
	}
	return deny(ReasonNoGrant)
}

// mapManage is owner-only. ADMIN does not bypass it.
func mapManage(a Actor, m MapFacts) Decision {
	if a.Anonymous() {
		return deny(ReasonAnonymous)
	}
	if isOwner(a, m) {
		return allow(ReasonOwner)
	}
	return deny(ReasonNotOwner)
}

func mapAddSpot(a Actor, m MapFacts) Decision {
	if a.Anonymous() {
		return deny(ReasonAnonymous)
	}
	if isOwner(a, m) {
		return allow(ReasonOwner)
	}
	switch m.ShareRole {
	case models.ShareWrite:
		return allow(ReasonShareWrite)
	case models.ShareRead:
		return deny(ReasonReadOnly)
	}
	return deny(ReasonNoGrant)
}

func mapLeave(a Actor, m MapFacts) Decision {
	if a.Anonymous() {
		return deny(ReasonAnonymous)
	}
	if isOwner(a, m) {
		return deny(ReasonOwnerStays)
	}
	switch m.ShareRole {
	case models.ShareWrite:
		return allow(ReasonShareWrite)
	case models.ShareRead:
		return allow(ReasonShareRead)
	}
	return deny(ReasonNoGrant)
}

func spotRead(a Actor, s SpotFacts) Decision {
	if s.Visibility == models.VisibilityPublic {
		return allow(ReasonPublicSpot)
	}
	linkDenial := Reason("")
	for _, m := range s.Maps {
		d := mapRead(a, m)
		if d.Allowed {
			return d
		}
		if d.Reason == ReasonLinkDisabled || d.Reason == ReasonTokenMismatch {
			linkDenial = d.Reason
		}
	}
	if a.Anonymous() {
		return deny(ReasonAnonymous)
	}
	if linkDenial != "" {
		return deny(linkDenial)
	}
	return deny(ReasonNoGrant)
}

func spotWrite(a Actor, s SpotFacts) Decision {
	if a.Anonymous() {
		return deny(ReasonAnonymous)
	}
	if a.UserID == s.OwnerID {
		return allow(ReasonOwner)
	}
	if a.IsAdmin() {
		return allow(ReasonAdmin)
	}
	if s.PrimaryMapID != nil {
		for _, m := range s.Maps {
			if m.ID == *s.PrimaryMapID {
				return mapAddSpot(a, m)
			}
		}
	}
	return deny(ReasonNoGrant)
}
