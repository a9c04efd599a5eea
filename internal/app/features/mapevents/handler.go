// internal/app/features/mapevents/handler.go
package mapevents

import (
	"net/http"

	"github.com/dalemusser/flyspot/internal/app/policy/access"
	"github.com/dalemusser/flyspot/internal/app/system/apperr"
	"github.com/dalemusser/flyspot/internal/app/system/events"
	"github.com/dalemusser/flyspot/internal/app/system/respond"
	"go.uber.org/zap"
)

// Handler streams "maps updated" events to the signed-in user.
type Handler struct {
	Broker *events.Broker
	Log    *zap.Logger
}

func NewHandler(broker *events.Broker, logger *zap.Logger) *Handler {
	return &Handler{Broker: broker, Log: logger}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /events/maps                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeStream is a server-sent events stream. Each event is
//
//	event: <kind>
//	data: {"kind":"...","map_id":"..."}
//
// Clients re-fetch their map list when one arrives. The stream ends when
// the client disconnects.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	actor := access.ActorFrom(r)
	if actor.Anonymous() {
		respond.Error(w, r, h.Log, apperr.Unauthorized("sign in required"), "/login")
		return
	}

	userID := actor.UserID.Hex()
	h.Log.Debug("map events stream opened", zap.String("user_id", userID))
	defer h.Log.Debug("map events stream closed", zap.String("user_id", userID))

	h.Broker.Serve(w, r, userID)
}
