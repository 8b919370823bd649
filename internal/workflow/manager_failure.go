package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"montage/internal/logging"
	"montage/internal/queue"
	"montage/internal/render"
	"montage/internal/services"
)

func (m *Manager) handleJobFailure(ctx context.Context, logger *slog.Logger, job *queue.Job, runErr error) {
	now := time.Now().UTC()
	failedStage := job.Stage

	job.Status = queue.StatusFailed
	job.ErrorKind = services.Classify(runErr)
	job.ErrorMessage = failureMessage(runErr)
	job.ErrorDetail = render.Diagnostics(runErr)
	job.FinishedAt = &now
	job.LastHeartbeat = nil

	logging.ErrorWithContext(logger, "job failed", "job_failed",
		logging.String(logging.FieldStage, failedStage),
		logging.String("error_kind", job.ErrorKind),
		logging.Error(runErr),
		logging.String(logging.FieldErrorHint, "run `montage queue show` for diagnostics, then `montage queue retry`"),
	)

	if err := m.store.Update(ctx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist job failure")
		} else {
			logger.Error("failed to persist job failure", logging.Error(err))
		}
	}
	m.setLastError(runErr)
	m.setLastJob(job)
}

func failureMessage(err error) string {
	if err == nil {
		return "render failed without error detail"
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		return "render failed"
	}
	return message
}
