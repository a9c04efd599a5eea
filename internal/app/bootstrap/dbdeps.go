// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/flyspot/internal/app/system/auditlog"
	"github.com/dalemusser/flyspot/internal/app/system/events"
	"github.com/dalemusser/flyspot/internal/app/system/invites"
	"github.com/dalemusser/flyspot/internal/app/system/mailer"
	"github.com/dalemusser/flyspot/internal/app/system/mq"
	"github.com/dalemusser/flyspot/internal/app/system/objstore"
	"github.com/dalemusser/flyspot/internal/app/system/ratelimit"
	"github.com/dalemusser/flyspot/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// Clients and backends are opened in ConnectDB. Runtime pieces built in
// Startup hang off Services, which is shared by pointer because the
// lifecycle hooks receive DBDeps by value.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Storage objstore.Store
	Queue   mq.Backend // nil when mq_backend is "none"

	Services *Services
}

// Services are started in Startup and stopped in Shutdown.
type Services struct {
	Broker   *events.Broker
	Bridge   *events.Bridge // nil without a queue
	Notifier *events.Notifier
	Mail     mailer.Sender
	Invites  *invites.Notifier
	Limiter  *ratelimit.AuthLimiter
	Relay    *workers.MailRelay // nil without a queue
	Cleanup  *workers.TokenCleanup
	Audit    *auditlog.Logger
}
