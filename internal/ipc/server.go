package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"montage/internal/api"
	"montage/internal/daemon"
	"montage/internal/logging"
	"montage/internal/staging"
)

// ServiceName is the RPC receiver name clients address.
const ServiceName = "Montage"

// Server exposes daemon control as JSON-RPC over a Unix domain socket.
type Server struct {
	path     string
	logger   *slog.Logger
	listener net.Listener
	rpc      *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer replaces any stale socket at path and registers the control
// service for d.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(ServiceName, &service{daemon: d, logger: logger, ctx: serverCtx}); err != nil {
		cancel()
		_ = listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}
	return &Server{path: path, logger: logger, listener: listener, rpc: rpcServer, ctx: serverCtx, cancel: cancel}, nil
}

// Serve accepts connections in the background until Close.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
				logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon"))
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.rpc.ServeCodec(jsonrpc.NewServerCodec(conn))
		}()
	}
}

// Close stops accepting, waits for open connections and removes the socket.
func (s *Server) Close() {
	s.cancel()
	_ = s.listener.Close()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file or rerun montage stop"))
	}
}

// service holds the RPC methods. Local socket clients are trusted, so job
// DTOs keep the diagnostic tail.
type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

var localView = api.ConvertOptions{IncludeDiagnostics: true}

func (s *service) event(msg, eventType string, attrs ...slog.Attr) {
	attrs = append([]slog.Attr{logging.String(logging.FieldEventType, eventType)}, attrs...)
	s.logger.LogAttrs(s.ctx, slog.LevelInfo, msg, attrs...)
}

func (s *service) Stop(_ Empty, resp *StopResponse) error {
	s.daemon.Stop()
	resp.Stopped = true
	s.event("daemon stopped via IPC", "daemon_stop")
	return nil
}

func (s *service) Status(_ Empty, resp *StatusResponse) error {
	*resp = s.daemon.Status(s.ctx).API()
	return nil
}

func (s *service) QueueList(req QueueListRequest, resp *QueueListResponse) error {
	statuses, err := api.ParseStatusFilter(req.Statuses)
	if err != nil {
		return err
	}
	jobs, err := s.daemon.ListQueue(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Jobs = api.FromQueueJobs(jobs, localView)
	return nil
}

func (s *service) QueueDescribe(req JobRequest, resp *JobResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid job id %d", req.ID)
	}
	job, err := s.daemon.GetJob(s.ctx, req.ID)
	switch {
	case err != nil:
		return err
	case job == nil:
		return fmt.Errorf("job %d not found", req.ID)
	}
	resp.Job = api.FromQueueJob(job, localView)
	return nil
}

func (s *service) QueueSubmit(req QueueSubmitRequest, resp *JobResponse) error {
	job, err := s.daemon.Submit(s.ctx, req)
	if err != nil {
		return err
	}
	resp.Job = api.FromQueueJob(job, localView)
	s.event("job submitted via IPC", "queue_submit",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int("clip_count", len(req.ClipPaths)))
	return nil
}

func (s *service) QueueClear(req QueueClearRequest, resp *CountResponse) error {
	removed, err := s.daemon.ClearJobs(s.ctx, req.Scope)
	if err != nil {
		return err
	}
	resp.Count = removed
	scope := req.Scope
	if scope == "" {
		scope = api.ClearAll
	}
	s.event("queue cleared", "queue_clear",
		logging.String("scope", string(scope)),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) QueueReset(_ Empty, resp *CountResponse) error {
	updated, err := s.daemon.ResetStuck(s.ctx)
	if err != nil {
		return err
	}
	resp.Count = updated
	s.event("queue stuck jobs reset", "queue_reset_stuck", logging.Int64("updated_count", updated))
	return nil
}

func (s *service) QueueRetry(req JobIDsRequest, resp *QueueRetryResponse) error {
	result, err := s.daemon.RetryFailed(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	*resp = result
	s.event("queue jobs retried", "queue_retry", logging.Int64("updated_count", result.UpdatedCount))
	return nil
}

func (s *service) QueueRemove(req JobIDsRequest, resp *QueueRemoveResponse) error {
	if len(req.IDs) == 0 {
		return errors.New("queue remove requires at least one id")
	}
	result, err := s.daemon.RemoveJobs(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	*resp = result
	s.event("queue jobs removed", "queue_remove", logging.Int64("removed_count", result.RemovedCount))
	return nil
}

func (s *service) QueueHealth(_ Empty, resp *QueueHealthResponse) error {
	health, err := s.daemon.QueueHealth(s.ctx)
	if err != nil {
		return err
	}
	*resp = QueueHealthResponse(health)
	return nil
}

// DatabaseHealth returns the partial report alongside err when the check
// itself recorded the failure.
func (s *service) DatabaseHealth(_ Empty, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	if err != nil && health.Error == "" {
		return err
	}
	*resp = DatabaseHealthResponse(health)
	return err
}

func (s *service) Cleanup(_ Empty, resp *CleanupResponse) error {
	report, err := s.daemon.RunRetention(s.ctx)
	*resp = CleanupFromReport(report)
	return err
}

// CleanupFromReport flattens a retention report for transport. Slices are
// never nil so JSON output always carries arrays.
func CleanupFromReport(report api.RetentionReport) CleanupResponse {
	groups := []staging.CleanStaleResult{report.Scratch, report.Uploads, report.Orphaned, report.Outputs}
	resp := CleanupResponse{
		Scratch:  nonNil(report.Scratch.Removed),
		Uploads:  nonNil(report.Uploads.Removed),
		Orphaned: nonNil(report.Orphaned.Removed),
		Outputs:  nonNil(report.Outputs.Removed),
		Errors:   []string{},
	}
	for _, group := range groups {
		for _, e := range group.Errors {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %v", e.Path, e.Error))
		}
	}
	return resp
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
