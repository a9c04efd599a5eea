// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops the workers and ends open event streams, then closes the
// queue and disconnects MongoDB, so nothing is still consuming when its
// backend goes away.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if svc := deps.Services; svc != nil {
		if svc.Cleanup != nil {
			svc.Cleanup.Stop()
		}
		if svc.Relay != nil {
			svc.Relay.Stop()
		}
		if svc.Bridge != nil {
			svc.Bridge.Stop()
		}
		if svc.Broker != nil {
			svc.Broker.Close()
		}
	}
	if deps.Queue != nil {
		if err := deps.Queue.Close(); err != nil {
			logger.Warn("message queue close failed", zap.Error(err))
		}
	}
	if closer, ok := deps.Storage.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("object storage close failed", zap.Error(err))
		}
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting FlySpot MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
