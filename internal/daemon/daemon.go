package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"montage/internal/api"
	"montage/internal/config"
	"montage/internal/deps"
	"montage/internal/logging"
	"montage/internal/preflight"
	"montage/internal/queue"
	"montage/internal/workflow"
)

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	logPath  string

	lockPath string
	lock     *flock.Flock

	apiSrv *apiServer
	cron   *cron.Cron

	depsMu   sync.RWMutex
	depsSnap []deps.Status

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	LogPath      string
	APIAddress   string
	Dependencies []deps.Status
	Preflight    []preflight.Result
}

// API converts the status into its transport representation.
func (s Status) API() api.DaemonStatus {
	return api.DaemonStatus{
		Running:      s.Running,
		PID:          s.PID,
		QueueDBPath:  s.QueueDBPath,
		LockFilePath: s.LockFilePath,
		LogPath:      s.LogPath,
		APIAddress:   s.APIAddress,
		Workflow:     api.FromStatusSummary(s.Workflow),
		Dependencies: api.FromDependencies(s.Dependencies),
		Preflight:    api.FromPreflight(s.Preflight),
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, logPath string) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "montaged.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		logPath:  logPath,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.apiSrv = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, then launches the workflow manager, the
// HTTP API and the retention schedule.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another montage daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if reset, err := d.store.ResetStuckProcessing(d.ctx); err != nil {
		d.logger.Warn("failed to reset interrupted jobs",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_reset_failed"),
			logging.String(logging.FieldErrorHint, "run montage queue list to inspect processing jobs"),
		)
	} else if reset > 0 {
		d.logger.Info("interrupted jobs returned to pending",
			logging.Int64("count", reset),
			logging.String(logging.FieldEventType, "queue_reset"),
		)
	}

	if err := d.workflow.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.apiSrv.start(d.ctx); err != nil {
		d.workflow.Stop()
		d.abortStart()
		return err
	}
	if err := d.startRetention(); err != nil {
		d.apiSrv.stop()
		d.workflow.Stop()
		d.abortStart()
		return err
	}

	d.refreshDependencies(d.ctx)
	d.running.Store(true)
	d.logger.Info("montage daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing, fails the jobs that were interrupted and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.stopRetention()
	d.apiSrv.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()

	if failed, err := d.store.FailProcessing(context.Background(), queue.DaemonStopReason); err != nil {
		d.logger.Warn("failed to mark interrupted jobs",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_fail_processing_failed"),
		)
	} else if failed > 0 {
		d.logger.Info("interrupted jobs marked failed",
			logging.Int64("count", failed),
			logging.String(logging.FieldEventType, "queue_fail_processing"),
		)
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("montage daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddress returns the address the HTTP API listens on, or "" when the
// API is disabled or not started.
func (d *Daemon) APIAddress() string {
	return d.apiSrv.address()
}

// ListQueue returns jobs filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Job, error) {
	return d.store.List(ctx, statuses...)
}

// GetJob returns a single job or nil.
func (d *Daemon) GetJob(ctx context.Context, id int64) (*queue.Job, error) {
	return d.store.GetByID(ctx, id)
}

// ClearJobs removes jobs in scope; processing jobs are always kept.
func (d *Daemon) ClearJobs(ctx context.Context, scope api.ClearScope) (int64, error) {
	return api.ClearJobs(ctx, d.store, scope)
}

// ResetStuck transitions processing jobs back to pending.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	return d.store.ResetStuckProcessing(ctx)
}

// RetryFailed resets failed jobs (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (api.RetryJobsResult, error) {
	if len(ids) == 0 {
		updated, err := d.store.RetryFailed(ctx)
		return api.RetryJobsResult{UpdatedCount: updated}, err
	}
	return api.RetryFailedJobsByID(ctx, d.store, ids)
}

// RemoveJobs deletes the given jobs unless a worker owns them.
func (d *Daemon) RemoveJobs(ctx context.Context, ids []int64) (api.RemoveJobsResult, error) {
	return api.RemoveJobsByID(ctx, d.store, ids)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// RunRetention performs one retention sweep now.
func (d *Daemon) RunRetention(ctx context.Context) (api.RetentionReport, error) {
	return api.RunRetention(ctx, d.cfg, d.store, d.logger)
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Submit enqueues files already present on the daemon host.
func (d *Daemon) Submit(ctx context.Context, req api.LocalSubmission) (*queue.Job, error) {
	return api.SubmitLocal(ctx, d.cfg, d.store, req)
}

// LockPath returns the path of the single-instance lock.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.depsMu.RLock()
	snapshot := append([]deps.Status(nil), d.depsSnap...)
	d.depsMu.RUnlock()
	if len(snapshot) == 0 {
		snapshot = deps.CheckBinaries(deps.Requirements(d.cfg))
	}

	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
		APIAddress:   d.APIAddress(),
		Dependencies: snapshot,
		Preflight:    preflight.RunAll(ctx, d.cfg),
	}
}

func (d *Daemon) refreshDependencies(ctx context.Context) {
	snapshot := deps.Inspect(ctx, deps.Requirements(d.cfg))
	d.depsMu.Lock()
	d.depsSnap = snapshot
	d.depsMu.Unlock()

	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, dep := range snapshot {
		attrs = append(attrs,
			logging.Bool(dep.Command+"_available", dep.Available),
			logging.String(dep.Command+"_version", dep.Version),
		)
	}
	d.logger.Info("dependency snapshot", logging.Args(attrs...)...)
	if missing := deps.Missing(snapshot); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, dep := range missing {
			names = append(names, dep.Name)
		}
		logging.WarnWithContext(d.logger, "required binaries missing", "dependency_missing",
			logging.Strings("missing", names),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set engine.ffmpeg_binary / engine.ffprobe_binary"),
			logging.String(logging.FieldImpact, "jobs will wait until the binaries are available"),
		)
	}
}
