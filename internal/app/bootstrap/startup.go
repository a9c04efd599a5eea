// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	"github.com/dalemusser/flyspot/internal/app/store/audit"
	"github.com/dalemusser/flyspot/internal/app/store/oauthstate"
	"github.com/dalemusser/flyspot/internal/app/store/queries/audience"
	"github.com/dalemusser/flyspot/internal/app/store/tokens"
	"github.com/dalemusser/flyspot/internal/app/system/auditlog"
	"github.com/dalemusser/flyspot/internal/app/system/events"
	"github.com/dalemusser/flyspot/internal/app/system/invites"
	"github.com/dalemusser/flyspot/internal/app/system/mailer"
	"github.com/dalemusser/flyspot/internal/app/system/ratelimit"
	"github.com/dalemusser/flyspot/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// tokenSweepInterval is how often expired auth tokens and OAuth states
// are removed.
const tokenSweepInterval = 15 * time.Minute

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It wires
// the maps-updated broker, the mail path and the background workers.
//
// With a message queue configured, events and mail go through it so every
// instance sees them; without one, both are delivered in-process.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	svc := deps.Services
	smtp := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)

	svc.Broker = events.NewBroker()
	var bus events.Bus = events.Local{Broker: svc.Broker}
	svc.Mail = smtp
	if deps.Queue != nil {
		svc.Bridge = events.NewBridge(deps.Queue, svc.Broker, logger)
		svc.Bridge.Start()
		bus = svc.Bridge

		svc.Relay = workers.NewMailRelay(deps.Queue, smtp, logger)
		svc.Relay.Start()
		svc.Mail = mailer.NewQueued(deps.Queue)
	}
	svc.Notifier = events.NewNotifier(bus, audience.New(deps.MongoDatabase), logger)
	svc.Invites = invites.New(svc.Mail, appCfg.SiteName, appCfg.BaseURL, logger)
	svc.Limiter = ratelimit.NewAuthLimiter()
	svc.Audit = auditlog.New(audit.New(deps.MongoDatabase), logger, appCfg.auditConfig())

	svc.Cleanup = workers.NewTokenCleanup(map[string]workers.Expirer{
		"auth_tokens":  tokens.New(deps.MongoDatabase),
		"oauth_states": oauthstate.New(deps.MongoDatabase),
	}, logger, tokenSweepInterval)
	svc.Cleanup.Start()

	if !smtp.Enabled() {
		logger.Warn("mail_smtp_host is empty; outgoing mail is logged, not sent")
	}
	return nil
}
