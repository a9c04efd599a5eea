// internal/app/system/workers/tokencleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Expirer deletes rows whose expiry has passed. The token and OAuth state
// stores both satisfy it.
type Expirer interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// TokenCleanup periodically sweeps expired single-use tokens and OAuth
// states. Mongo's TTL monitor does the same eventually; this keeps the
// collections tight between its passes.
type TokenCleanup struct {
	targets  map[string]Expirer
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewTokenCleanup creates a cleanup worker. targets maps a name used in
// logs to the store to sweep.
func NewTokenCleanup(targets map[string]Expirer, logger *zap.Logger, interval time.Duration) *TokenCleanup {
	return &TokenCleanup{
		targets:  targets,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *TokenCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("token cleanup worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *TokenCleanup) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("token cleanup worker stopped")
}

func (w *TokenCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep(context.Background())
		}
	}
}

// Sweep runs one pass over every target.
func (w *TokenCleanup) Sweep(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	for name, t := range w.targets {
		n, err := t.CleanupExpired(ctx)
		if err != nil {
			w.log.Error("expired row cleanup failed", zap.String("target", name), zap.Error(err))
			continue
		}
		if n > 0 {
			w.log.Info("removed expired rows", zap.String("target", name), zap.Int64("count", n))
		}
	}
}
