package api

import (
	"context"
	"log/slog"
	"time"

	"montage/internal/config"
	"montage/internal/logging"
	"montage/internal/queue"
	"montage/internal/staging"
)

// orphanGrace protects session directories whose job row is not written yet.
const orphanGrace = time.Hour

// JobLister lists jobs by status.
type JobLister interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error)
}

// RetentionReport summarizes one retention sweep.
type RetentionReport struct {
	Scratch  staging.CleanStaleResult
	Uploads  staging.CleanStaleResult
	Orphaned staging.CleanStaleResult
	Outputs  staging.CleanStaleResult
}

// Removed counts every entry removed by the sweep.
func (r RetentionReport) Removed() int {
	return len(r.Scratch.Removed) + len(r.Uploads.Removed) + len(r.Orphaned.Removed) + len(r.Outputs.Removed)
}

// Errors counts every entry that could not be removed.
func (r RetentionReport) Errors() int {
	return len(r.Scratch.Errors) + len(r.Uploads.Errors) + len(r.Orphaned.Errors) + len(r.Outputs.Errors)
}

// RunRetention removes aged scratch intermediates, upload sessions and
// outputs. Sessions of pending or processing jobs are never removed; an
// output age of zero keeps outputs forever.
func RunRetention(ctx context.Context, cfg *config.Config, jobs JobLister, logger *slog.Logger) (RetentionReport, error) {
	logger = logging.NewComponentLogger(logger, "retention")
	report := RetentionReport{}
	if cfg == nil {
		return report, nil
	}

	active := map[string]struct{}{}
	referenced := map[string]struct{}{}
	if jobs != nil {
		all, err := jobs.List(ctx)
		if err != nil {
			return report, err
		}
		for _, job := range all {
			if job.SessionID == "" {
				continue
			}
			referenced[job.SessionID] = struct{}{}
			if job.Status == queue.StatusPending || job.Status == queue.StatusProcessing {
				active[job.SessionID] = struct{}{}
			}
		}
	}

	hours := func(n int) time.Duration { return time.Duration(n) * time.Hour }
	report.Scratch = staging.CleanStale(ctx, cfg.Paths.ScratchDir, hours(cfg.Retention.ScratchMaxAgeHours), logger)
	report.Uploads = staging.CleanStaleExcept(ctx, cfg.Paths.UploadDir, hours(cfg.Retention.UploadMaxAgeHours), active, logger)
	report.Orphaned = staging.CleanOrphaned(ctx, cfg.Paths.UploadDir, referenced, orphanGrace, logger)
	report.Outputs = staging.CleanStale(ctx, cfg.Paths.OutputDir, hours(cfg.Retention.OutputMaxAgeHours), logger)

	if removed := report.Removed(); removed > 0 || report.Errors() > 0 {
		logger.Info("retention sweep finished",
			logging.Int("removed", removed),
			logging.Int("errors", report.Errors()),
			logging.String(logging.FieldEventType, "retention_sweep"),
		)
	}
	return report, ctx.Err()
}
