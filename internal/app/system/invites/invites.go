// internal/app/system/invites/invites.go
package invites

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/flyspot/internal/app/system/mailer"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Invite describes a share grant worth telling the invitee about.
type Invite struct {
	To        string
	OwnerName string
	MapName   string
	MapID     primitive.ObjectID
	Role      string
}

// Notifier sends share invitations in the background. The share row is
// the system of record, so delivery problems are only logged.
type Notifier struct {
	sender   mailer.Sender
	siteName string
	baseURL  string
	timeout  time.Duration
	log      *zap.Logger
	async    bool
}

func New(sender mailer.Sender, siteName, baseURL string, log *zap.Logger) *Notifier {
	return &Notifier{
		sender:   sender,
		siteName: siteName,
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  30 * time.Second,
		log:      log,
		async:    true,
	}
}

// Sync makes Send block until delivery finishes. Tests use it.
func (n *Notifier) Sync() *Notifier {
	n.async = false
	return n
}

// Send emails the invitee. It never fails from the caller's point of view
// and does not hold up the request unless Sync was set.
func (n *Notifier) Send(inv Invite) {
	if n == nil || n.sender == nil || inv.To == "" {
		return
	}
	email := mailer.BuildMapInviteEmail(inv.To, mailer.MapInviteEmailData{
		SiteName:  n.siteName,
		OwnerName: inv.OwnerName,
		MapName:   inv.MapName,
		Role:      inv.Role,
		Link:      n.baseURL + "/maps/" + inv.MapID.Hex(),
	})

	deliver := func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.sender.Send(ctx, email); err != nil {
			n.log.Warn("share invite email failed",
				zap.String("map_id", inv.MapID.Hex()),
				zap.String("to", inv.To),
				zap.Error(err))
			return
		}
		n.log.Info("share invite email sent",
			zap.String("event", "share_invite"),
			zap.String("map_id", inv.MapID.Hex()),
			zap.String("to", inv.To))
	}
	if n.async {
		go deliver()
		return
	}
	deliver()
}
