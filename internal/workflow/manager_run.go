package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"montage/internal/logging"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.renderer == nil {
		m.mu.Unlock()
		return errors.New("workflow renderer not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(m.workers + 1)
	m.mu.Unlock()

	if _, err := m.liveness.Reclaim(runCtx); err != nil {
		m.logger.Warn("initial stale job reclaim failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}

	go func() {
		defer m.wg.Done()
		m.liveness.reclaimLoop(runCtx)
	}()
	for i := range m.workers {
		go m.runWorker(runCtx, i+1)
	}

	m.logger.Info("workflow started",
		logging.Int("workers", m.workers),
		logging.String(logging.FieldEventType, "workflow_started"),
	)
	return nil
}

// Stop terminates background processing and waits for in-flight jobs to
// observe cancellation.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stopped"))
}

func (m *Manager) runWorker(ctx context.Context, index int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.String(logging.FieldComponent, fmt.Sprintf("workflow-worker-%d", index)))

	for {
		if ctx.Err() != nil {
			return
		}

		if err := m.runPreflightChecks(ctx, logger); err != nil {
			m.setLastError(err)
			m.wait(ctx, m.retryInterval)
			continue
		}

		job, err := m.store.ClaimNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.setLastError(err)
			logger.Error("failed to claim next job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			m.wait(ctx, m.retryInterval)
			continue
		}
		if job == nil {
			m.wait(ctx, m.pollInterval)
			continue
		}

		if err := m.processJob(ctx, logger, job); errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return
		}
	}
}

func (m *Manager) wait(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
