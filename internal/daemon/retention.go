package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"montage/internal/logging"
)

// retentionTimeout bounds a single sweep so a slow filesystem cannot pile up
// overlapping runs.
const retentionTimeout = 10 * time.Minute

func (d *Daemon) startRetention() error {
	schedule := strings.TrimSpace(d.cfg.Retention.CleanupSchedule)
	if schedule == "" {
		d.logger.Info("retention schedule disabled", logging.String(logging.FieldEventType, "retention_disabled"))
		return nil
	}

	logger := cronLogger{logger: logging.NewComponentLogger(d.logger, "cron")}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(schedule, d.retentionTick); err != nil {
		return fmt.Errorf("retention schedule %q: %w", schedule, err)
	}
	c.Start()
	d.cron = c
	d.logger.Info("retention scheduled",
		logging.String("schedule", schedule),
		logging.String(logging.FieldEventType, "retention_scheduled"),
	)
	return nil
}

func (d *Daemon) stopRetention() {
	if d.cron == nil {
		return
	}
	<-d.cron.Stop().Done()
	d.cron = nil
}

func (d *Daemon) retentionTick() {
	parent := d.ctx
	if parent == nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, retentionTimeout)
	defer cancel()

	report, err := d.RunRetention(ctx)
	if err != nil {
		logging.WarnWithContext(d.logger, "retention sweep failed", "retention_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the scratch, upload and output directories"),
			logging.String(logging.FieldImpact, "stale files remain on disk until the next sweep"),
		)
		return
	}
	if report.Errors() > 0 {
		logging.WarnWithContext(d.logger, "retention sweep left entries behind", "retention_partial",
			logging.Int("errors", report.Errors()),
			logging.String(logging.FieldImpact, "some stale files remain on disk"),
		)
	}
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{logging.Error(err)}, keysAndValues...)...)
}
