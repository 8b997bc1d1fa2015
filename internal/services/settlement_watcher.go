package services

import (
	"time"

	"degentalk-backend/pkg/logger"

	"go.uber.org/zap"
)

// SettlementWatcher periodically expires transactions stuck in
// awaiting_external past the gateway timeout, so a silent gateway can never
// leave money in limbo. One watcher runs per process.
type SettlementWatcher struct {
	econ     *EconomyService
	interval time.Duration
	stopChan chan struct{}
}

func NewSettlementWatcher(econ *EconomyService, interval time.Duration) *SettlementWatcher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SettlementWatcher{
		econ:     econ,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start runs the expiry loop until Stop is called. Run it in its own
// goroutine.
func (w *SettlementWatcher) Start() {
	logger.Log.Info("settlement watcher started",
		zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			expired, err := w.econ.ExpireStale()
			if err != nil {
				logger.Log.Error("settlement watcher sweep failed", zap.Error(err))
				continue
			}
			if expired > 0 {
				logger.Log.Warn("expired stale external transactions",
					zap.Int("count", expired))
			}
		case <-w.stopChan:
			logger.Log.Info("settlement watcher stopped")
			return
		}
	}
}

// Stop terminates the loop.
func (w *SettlementWatcher) Stop() {
	close(w.stopChan)
}
