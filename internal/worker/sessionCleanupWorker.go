package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// SessionCleaner evicts idle form sessions and returns how many went away.
type SessionCleaner interface {
	Cleanup(now time.Time) int
}

type SessionCleanupWorker struct {
	cleaner  SessionCleaner
	interval time.Duration
}

func NewSessionCleanupWorker(cleaner SessionCleaner, interval time.Duration) *SessionCleanupWorker {
	return &SessionCleanupWorker{
		cleaner:  cleaner,
		interval: interval,
	}
}

func (w *SessionCleanupWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		logrus.Warn("Session cleanup worker disabled")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Info("Session cleanup worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Session cleanup worker stopped")
			return
		case now := <-ticker.C:
			w.cleanup(now)
		}
	}
}

func (w *SessionCleanupWorker) cleanup(now time.Time) {
	removed := w.cleaner.Cleanup(now)
	if removed == 0 {
		logrus.Debug("No idle sessions found for cleanup")
		return
	}
	logrus.Infof("Removed %d idle sessions", removed)
}
