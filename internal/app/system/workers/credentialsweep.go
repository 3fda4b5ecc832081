// internal/app/system/workers/credentialsweep.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Expirer deletes rows that expired at or before now.
// tokenstore.Store and otpstore.Store both satisfy it.
type Expirer interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CredentialSweep is a background worker that removes expired bearer tokens
// and spent verification codes. MongoDB TTL indexes do the same thing
// eventually; the sweep keeps the collections tight between TTL passes.
type CredentialSweep struct {
	targets  map[string]Expirer
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCredentialSweep creates a sweep over the named targets, run every interval.
func NewCredentialSweep(targets map[string]Expirer, logger *zap.Logger, interval time.Duration) *CredentialSweep {
	return &CredentialSweep{
		targets:  targets,
		log:      logger,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *CredentialSweep) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("credential sweep started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
// Safe to call more than once.
func (w *CredentialSweep) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("credential sweep stopped")
	})
}

func (w *CredentialSweep) run() {
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

// Sweep runs one pass over every target and returns the total removed.
// A failing target is logged and does not stop the others.
func (w *CredentialSweep) Sweep(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := w.now()
	var total int64
	for name, t := range w.targets {
		n, err := t.DeleteExpired(ctx, now)
		if err != nil {
			w.log.Error("credential sweep failed", zap.String("target", name), zap.Error(err))
			continue
		}
		if n > 0 {
			w.log.Info("swept expired credentials", zap.String("target", name), zap.Int64("count", n))
		}
		total += n
	}
	return total
}
