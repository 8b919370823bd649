package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"montage/internal/config"
	"montage/internal/daemon"
	"montage/internal/deps"
	"montage/internal/engine"
	"montage/internal/ipc"
	"montage/internal/logging"
	"montage/internal/publish"
	"montage/internal/queue"
	"montage/internal/render"
	"montage/internal/workflow"
)

// Options tune a daemon process. Empty fields fall back to the config.
type Options struct {
	LogLevel    string
	Development bool
	SocketPath  string
}

func (o Options) level(cfg *config.Config) string {
	if level := strings.TrimSpace(o.LogLevel); level != "" {
		return level
	}
	return cfg.Logging.Level
}

func (o Options) socket(cfg *config.Config) string {
	if socket := strings.TrimSpace(o.SocketPath); socket != "" {
		return socket
	}
	return cfg.SocketPath()
}

// teardown runs deferred release steps in reverse order.
type teardown []func()

func (t *teardown) push(fn func()) { *t = append(*t, fn) }

func (t teardown) run() {
	for i := len(t) - 1; i >= 0; i-- {
		t[i]()
	}
}

// Run wires the store, renderer, publisher, daemon and control socket, then
// blocks until SIGINT, SIGTERM or cancellation of parent.
func Run(parent context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	ctx, stopSignals := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	logPath := runLogPath(cfg.Paths.LogDir, time.Now())
	logger, err := logging.New(logging.Options{
		Level:       opts.level(cfg),
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logRuntimeSnapshot(logger, cfg)
	if err := pointCurrentLog(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update montage.log link: %v\n", err)
	}

	var cleanup teardown
	defer cleanup.run()

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	cleanup.push(func() { _ = os.Remove(pidPath) })

	d, err := assemble(ctx, cfg, logger, logPath, &cleanup)
	if err != nil {
		return err
	}

	server, err := ipc.NewServer(ctx, opts.socket(cfg), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	cleanup.push(server.Close)
	server.Serve()

	if err := d.Start(ctx); err != nil {
		logging.WarnWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check configuration, the lock file and queue database access"),
			logging.String(logging.FieldImpact, "daemon will not process jobs"))
	}

	<-ctx.Done()
	logger.Info("montage daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// assemble opens the store and builds the daemon around it, registering
// each release step on cleanup.
func assemble(ctx context.Context, cfg *config.Config, logger *slog.Logger, logPath string, cleanup *teardown) (*daemon.Daemon, error) {
	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return nil, err
	}
	cleanup.push(func() { _ = store.Close() })

	renderer, err := render.NewFromConfig(cfg, engine.NewFFmpeg(cfg, logger), logger)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	publisher, err := publish.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create publisher: %w", err)
	}
	manager := workflow.NewManager(cfg, store, renderer, logger, workflow.WithPublisher(publisher))

	d, err := daemon.New(cfg, store, logger, manager, logPath)
	if err != nil {
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	cleanup.push(func() { _ = d.Close() })
	return d, nil
}

func runLogPath(logDir string, started time.Time) string {
	return filepath.Join(logDir, "montage-"+started.UTC().Format("20060102T150405.000Z")+".log")
}

func logRuntimeSnapshot(logger *slog.Logger, cfg *config.Config) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("publish_enabled", cfg.Publish.Enabled),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_token_present", strings.TrimSpace(cfg.Paths.APIToken) != ""),
		logging.String("cleanup_schedule", cfg.Retention.CleanupSchedule),
	}
	for _, dep := range deps.CheckBinaries(deps.Requirements(cfg)) {
		attrs = append(attrs,
			logging.Bool(dep.Command+"_available", dep.Available),
			logging.String(dep.Command+"_binary", dep.Path))
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, "runtime snapshot", attrs...)
}
