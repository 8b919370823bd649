package workflow

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"montage/internal/config"
	"montage/internal/logging"
	"montage/internal/queue"
)

// JobLogger manages dedicated log files for render jobs.
type JobLogger struct {
	baseDir string
	level   string
	format  string
}

// NewJobLogger returns nil when no log directory is configured.
func NewJobLogger(cfg *config.Config) *JobLogger {
	if cfg == nil || strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return nil
	}
	format := strings.TrimSpace(cfg.Logging.Format)
	if format == "" {
		format = "json"
	}
	return &JobLogger{
		baseDir: filepath.Join(cfg.Paths.LogDir, "jobs"),
		level:   cfg.Logging.Level,
		format:  format,
	}
}

// Path returns the log file location for a job.
func (l *JobLogger) Path(job *queue.Job) string {
	if l == nil || job == nil {
		return ""
	}
	return filepath.Join(l.baseDir, fmt.Sprintf("job-%d.log", job.ID))
}

// Open creates a logger writing only to the job's log file. Job and
// correlation IDs come from the context the caller logs with.
func (l *JobLogger) Open(job *queue.Job) (*slog.Logger, io.Closer, error) {
	if l == nil {
		return nil, nil, fmt.Errorf("job log directory not configured")
	}
	if job == nil {
		return nil, nil, fmt.Errorf("job is nil")
	}
	logger, closer, err := logging.NewFile(l.Path(job), logging.Options{Level: l.level, Format: l.format})
	if err != nil {
		return nil, nil, err
	}
	return logger, closer, nil
}
