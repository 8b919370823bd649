package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"montage/internal/logging"
	"montage/internal/queue"
)

// Liveness stamps heartbeats on jobs a worker owns and returns processing
// jobs to pending once their heartbeat is older than timeout.
type Liveness struct {
	store    *queue.Store
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// NewLiveness returns a tracker beating every interval. A zero timeout
// disables reclamation.
func NewLiveness(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *Liveness {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Liveness{store: store, logger: logger, interval: interval, timeout: timeout}
}

// Reclaim resets processing jobs with a stale heartbeat.
func (l *Liveness) Reclaim(ctx context.Context) (int64, error) {
	if l.timeout <= 0 {
		return 0, nil
	}
	n, err := l.store.ReclaimStale(ctx, time.Now().Add(-l.timeout))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		l.logger.Info("reclaimed stale jobs",
			logging.Int64("count", n),
			logging.String(logging.FieldEventType, "heartbeat_reclaimed"))
	}
	return n, nil
}

// Beat stamps jobID until the returned stop func is called. stop blocks
// until the last update returns.
func (l *Liveness) Beat(ctx context.Context, jobID int64) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.beat(ctx, jobID)
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func (l *Liveness) beat(ctx context.Context, jobID int64) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	logger := logging.WithContext(ctx, logging.NewComponentLogger(l.logger, "workflow-heartbeat"))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		err := l.store.UpdateHeartbeat(ctx, jobID)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			logger.Debug("heartbeat update cancelled")
		default:
			logger.Warn("heartbeat update failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
				logging.String(logging.FieldImpact, "job may be reclaimed while still running"))
		}
	}
}

// reclaimLoop sweeps for stale jobs at half the timeout until ctx ends.
func (l *Liveness) reclaimLoop(ctx context.Context) {
	period := l.timeout / 2
	if period <= 0 {
		return
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if _, err := l.Reclaim(ctx); err != nil && ctx.Err() == nil {
			l.logger.Warn("reclaim stale processing failed; stuck jobs may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"))
		}
	}
}
