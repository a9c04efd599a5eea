// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	userstore "github.com/dalemusser/flyspot/internal/app/store/users"
	"github.com/dalemusser/flyspot/internal/app/system/indexes"
	"github.com/dalemusser/flyspot/internal/app/system/mq"
	"github.com/dalemusser/flyspot/internal/app/system/objstore"
	"github.com/dalemusser/flyspot/internal/app/system/timeouts"
	"github.com/dalemusser/flyspot/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens MongoDB, the object store and the message queue.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	cctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)
	client, err := mongo.Connect(cctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
		Services:      &Services{},
	}

	if deps.Storage, err = openStorage(cctx, appCfg); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, err
	}
	if err := objstore.Ready(cctx, deps.Storage); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("prepare %s storage: %w", appCfg.StorageType, err)
	}
	logger.Info("object storage ready", zap.String("storage_type", appCfg.StorageType))

	if deps.Queue, err = openQueue(cctx, appCfg); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, err
	}
	logger.Info("message queue ready", zap.String("mq_backend", appCfg.MQBackend))
	return deps, nil
}

func openStorage(ctx context.Context, c AppConfig) (objstore.Store, error) {
	return objstore.Open(ctx, objstore.Config{
		Type:      c.StorageType,
		PublicURL: c.StoragePublicURL,
		LocalPath: c.StorageLocalPath,
		LocalURL:  c.StorageLocalURL,
		Minio: objstore.MinioConfig{
			Endpoint:  c.MinioEndpoint,
			AccessKey: c.MinioAccessKey,
			SecretKey: c.MinioSecretKey,
			Bucket:    c.MinioBucket,
			UseSSL:    c.MinioUseSSL,
		},
		S3Region:           c.S3Region,
		S3Bucket:           c.S3Bucket,
		S3Endpoint:         c.S3Endpoint,
		S3AccessKey:        c.S3AccessKey,
		S3SecretKey:        c.S3SecretKey,
		GCSBucket:          c.GCSBucket,
		GCSProjectID:       c.GCSProjectID,
		GCSCredentialsFile: c.GCSCredentialsFile,
	})
}

func openQueue(ctx context.Context, c AppConfig) (mq.Backend, error) {
	switch c.MQBackend {
	case "memory":
		return mq.NewMemory(), nil
	case "rabbitmq":
		return mq.NewRabbitMQ(mq.RabbitMQConfig{URL: c.RabbitMQURL, Prefetch: c.RabbitMQPrefetch})
	case "pubsub":
		return mq.NewPubSub(ctx, mq.PubSubConfig{
			ProjectID:       c.PubSubProjectID,
			CredentialsFile: c.PubSubCredentialsFile,
		})
	default:
		return nil, nil
	}
}

// EnsureSchema creates collection validators and indexes, then promotes
// the configured admin account.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	sctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	if err := validators.EnsureAll(sctx, deps.MongoDatabase); err != nil {
		return fmt.Errorf("ensure validators: %w", err)
	}
	if err := indexes.EnsureAll(sctx, deps.MongoDatabase); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return ensureAdmin(sctx, deps, appCfg.AdminEmail, logger)
}

// ensureAdmin promotes email to ADMIN. A missing account is only logged:
// the promotion happens on the next start after it registers.
func ensureAdmin(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	if email == "" {
		return nil
	}
	promoted, err := userstore.New(deps.MongoDatabase).PromoteByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("promote admin: %w", err)
	}
	if !promoted {
		logger.Warn("admin_email has no matching account yet", zap.String("email", email))
		return nil
	}
	logger.Info("admin account ensured", zap.String("event", "admin_promoted"), zap.String("email", email))
	return nil
}
