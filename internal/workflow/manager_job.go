package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"montage/internal/logging"
	"montage/internal/queue"
	"montage/internal/render"
	"montage/internal/services"
)

var stageLabels = map[render.State]string{
	render.StateProbing:       "Probing media",
	render.StateSequencing:    "Sequencing clips",
	render.StateConcatenating: "Concatenating clips",
	render.StateMuxing:        "Attaching audio",
	render.StateBurning:       "Burning subtitles",
}

func (m *Manager) processJob(ctx context.Context, workerLogger *slog.Logger, job *queue.Job) error {
	jobCtx := services.WithJobID(ctx, job.ID)
	if job.CorrelationID != "" {
		jobCtx = services.WithCorrelationID(jobCtx, job.CorrelationID)
	}
	logger := logging.WithContext(jobCtx, workerLogger)

	jobLogger := workerLogger
	if m.jobLogs != nil {
		fileLogger, closer, err := m.jobLogs.Open(job)
		if err != nil {
			logger.Warn("job log unavailable",
				logging.Error(err),
				logging.String(logging.FieldEventType, "job_log_unavailable"),
				logging.String(logging.FieldErrorHint, "check log_dir permissions"),
				logging.String(logging.FieldImpact, "job output is logged to the daemon log instead"),
			)
		} else {
			defer closer.Close()
			jobLogger = fileLogger
		}
	}

	m.setActive(job)
	defer m.clearActive(job.ID)

	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.Int("clips", len(job.ClipPaths)),
		logging.String("output", job.OutputPath),
		logging.String("log_file", m.jobLogs.Path(job)),
	)
	started := time.Now()

	renderJob := &render.Job{
		ID:           strconv.FormatInt(job.ID, 10),
		AudioPath:    job.AudioPath,
		SubtitlePath: job.SubtitlePath,
		ClipPaths:    job.ClipPaths,
		OutputPath:   job.OutputPath,
	}
	_, runErr := m.runWithHeartbeat(jobCtx, jobLogger, job, renderJob)
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) && ctx.Err() != nil {
			logger.Info("job interrupted by shutdown", logging.String(logging.FieldEventType, "job_interrupted"))
			return runErr
		}
		m.handleJobFailure(jobCtx, logger, job, runErr)
		return runErr
	}

	return m.completeJob(jobCtx, logger, job, time.Since(started))
}

func (m *Manager) runWithHeartbeat(ctx context.Context, logger *slog.Logger, job *queue.Job, renderJob *render.Job) (*render.MediaHandle, error) {
	defer m.liveness.Beat(ctx, job.ID)()
	return m.renderer.WithLogger(logger).Run(ctx, renderJob, m.progressObserver(ctx, job))
}

// progressObserver persists each non-terminal pipeline transition. Terminal
// states are recorded by the manager together with the outcome.
func (m *Manager) progressObserver(ctx context.Context, job *queue.Job) render.Observer {
	return func(t render.Transition) {
		if t.To.Terminal() || t.To == render.StateStart {
			return
		}
		label := stageLabels[t.To]
		if err := m.store.UpdateProgress(ctx, job.ID, t.To.String(), t.To.Progress(), label); err != nil && ctx.Err() == nil {
			logging.WithContext(ctx, m.logger).Warn("failed to persist job progress",
				logging.Error(err),
				logging.String(logging.FieldEventType, "progress_persist_failed"),
				logging.String(logging.FieldImpact, "job status lags behind the pipeline"),
			)
		}
		job.Stage = t.To.String()
		job.ProgressPercent = t.To.Progress()
		job.ProgressMessage = label
		m.setActive(job)
	}
}

func (m *Manager) completeJob(ctx context.Context, logger *slog.Logger, job *queue.Job, elapsed time.Duration) error {
	now := time.Now().UTC()
	job.Status = queue.StatusCompleted
	job.Stage = render.StateDone.String()
	job.ProgressPercent = 100
	job.ProgressMessage = "Completed"
	job.ErrorKind = ""
	job.ErrorMessage = ""
	job.ErrorDetail = ""
	job.FinishedAt = &now
	job.LastHeartbeat = nil

	url, err := m.publisher.Publish(ctx, job.OutputPath)
	if err != nil {
		job.ErrorKind = "publish"
		job.ErrorMessage = fmt.Sprintf("publish failed: %v", err)
		logging.WarnWithContext(logger, "publish failed; output kept locally", "publish_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check [publish] settings and bucket permissions"),
			logging.String(logging.FieldImpact, "output available for local download only"),
		)
	}
	job.PublishedURL = url

	if err := m.store.Update(ctx, job); err != nil {
		wrapped := fmt.Errorf("persist job result: %w", err)
		logger.Error("failed to persist job result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	m.setLastJob(job)
	m.removeSession(logger, job)

	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.String("output", job.OutputPath),
		logging.String("published_url", url),
		logging.Duration("elapsed", elapsed),
	)
	return nil
}

// removeSession deletes the job's upload session directory. Only directories
// directly under the upload dir are removed.
func (m *Manager) removeSession(logger *slog.Logger, job *queue.Job) {
	session := strings.TrimSpace(job.SessionID)
	if session == "" || strings.ContainsAny(session, `/\`) || session == "." || session == ".." {
		return
	}
	dir := filepath.Join(m.cfg.Paths.UploadDir, session)
	if err := os.RemoveAll(dir); err != nil {
		logging.WarnWithContext(logger, "session cleanup failed", "session_cleanup_failed",
			logging.String("path", dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the retention sweep removes it later"),
			logging.String(logging.FieldImpact, "upload space not reclaimed"),
		)
	}
}
