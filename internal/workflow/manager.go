package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"montage/internal/config"
	"montage/internal/logging"
	"montage/internal/preflight"
	"montage/internal/publish"
	"montage/internal/queue"
	"montage/internal/render"
)

// PreflightFunc reports readiness before a worker claims a job.
type PreflightFunc func(ctx context.Context, cfg *config.Config) []preflight.Result

// Manager coordinates background render workers.
type Manager struct {
	cfg           *config.Config
	store         *queue.Store
	renderer      *render.Renderer
	publisher     publish.Publisher
	logger        *slog.Logger
	pollInterval  time.Duration
	retryInterval time.Duration
	workers       int
	preflight     PreflightFunc

	liveness  *Liveness
	jobLogs   *JobLogger

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job
	active  map[int64]queue.Job
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithPublisher uploads finished outputs through p.
func WithPublisher(p publish.Publisher) ManagerOption {
	return func(m *Manager) {
		if p != nil {
			m.publisher = p
		}
	}
}

// WithPreflight replaces the readiness checks run before each claim.
func WithPreflight(fn PreflightFunc) ManagerOption {
	return func(m *Manager) {
		m.preflight = fn
	}
}

// WithoutJobLogs keeps job logging on the manager logger instead of
// dedicated files.
func WithoutJobLogs() ManagerOption {
	return func(m *Manager) {
		m.jobLogs = nil
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, renderer *render.Renderer, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "workflow")
	workers := cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	m := &Manager{
		cfg:           cfg,
		store:         store,
		renderer:      renderer,
		publisher:     publish.Nop{},
		logger:        logger,
		pollInterval:  seconds(cfg.Workflow.QueuePollInterval, time.Second),
		retryInterval: seconds(cfg.Workflow.ErrorRetryInterval, time.Second),
		workers:       workers,
		preflight:     preflight.RunAll,
		liveness: NewLiveness(store, logger,
			seconds(cfg.Workflow.HeartbeatInterval, 15*time.Second),
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second),
		jobLogs: NewJobLogger(cfg),
		active:  make(map[int64]queue.Job),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func seconds(value int, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return time.Duration(value) * time.Second
}
