package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"montage/internal/api"
	"montage/internal/config"
	"montage/internal/fileutil"
	"montage/internal/logging"
	"montage/internal/queue"
	"montage/internal/services"
)

// multipartOverhead is allowed on top of the upload limit for part headers
// and boundaries.
const multipartOverhead = 1 << 20

type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	cfg      *config.Config
	queueSvc *api.QueueService
	handler  http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
		cfg:    cfg,
		// Raw diagnostics are only served to authenticated callers.
		queueSvc: api.NewQueueService(d.store, api.ConvertOptions{IncludeDiagnostics: cfg.Paths.APIToken != ""}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload", srv.handleUpload)
	mux.HandleFunc("GET /api/check/{file}", srv.handleCheck)
	mux.HandleFunc("GET /api/download/{file}", srv.handleDownload)
	mux.HandleFunc("GET /api/results", srv.handleResults)
	mux.HandleFunc("GET /api/jobs", srv.handleJobs)
	mux.HandleFunc("GET /api/jobs/{id}", srv.handleJob)
	mux.HandleFunc("GET /api/status", srv.handleStatus)

	srv.handler = requestIDMiddleware(
		corsMiddleware(cfg.API.CORSOrigins,
			authMiddleware(cfg.Paths.APIToken, mux.ServeHTTP)),
		srv.log(),
	)
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	// Uploads and downloads can be large, so only header reads are bounded.
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	s.log().Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.String(logging.FieldEventType, "api_listening"),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	server, listener := s.server, s.listener
	s.server, s.listener = nil, nil
	s.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.MaxUploadBytes()
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}
	reader, err := r.MultipartReader()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "expected multipart/form-data upload")
		return
	}

	session, err := api.NewSession(s.cfg.Paths.UploadDir, api.LimitsFromConfig(s.cfg))
	if err != nil {
		s.log().Error("create upload session", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not create upload session")
		return
	}

	job, err := s.receiveUpload(r.Context(), reader, session)
	if err != nil {
		if discardErr := session.Discard(); discardErr != nil {
			s.log().Warn("failed to discard upload session",
				logging.String("session_id", session.ID),
				logging.Error(discardErr),
			)
		}
		status := uploadErrorStatus(err)
		if status == http.StatusInternalServerError {
			logging.ErrorWithContext(s.log(), "upload failed", "upload_failed",
				logging.String("session_id", session.ID),
				logging.Error(err),
			)
			s.writeError(w, status, "failed to store upload")
			return
		}
		s.writeError(w, status, err.Error())
		return
	}

	s.log().Info("upload accepted",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("session_id", session.ID),
		logging.Int("clips", len(session.ClipPaths)),
		logging.String(logging.FieldEventType, "upload_accepted"),
	)
	s.writeJSON(w, http.StatusAccepted, api.UploadResponse{
		Message:        "Upload accepted",
		Detail:         "Rendering runs in the background; poll /api/check/" + job.OutputName(),
		JobID:          job.ID,
		SessionID:      session.ID,
		OutputFilename: job.OutputName(),
	})
}

func (s *apiServer) receiveUpload(ctx context.Context, reader *multipart.Reader, session *api.Session) (*queue.Job, error) {
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		err = s.receivePart(session, part)
		_ = part.Close()
		if err != nil {
			return nil, err
		}
	}
	return session.Enqueue(ctx, s.daemon.store, s.cfg.Paths.OutputDir)
}

func (s *apiServer) receivePart(session *api.Session, part *multipart.Part) error {
	switch part.FormName() {
	case "audio":
		return session.SaveAudio(part.FileName(), part)
	case "srt":
		return session.SaveSubtitle(part.FileName(), part)
	case "videos":
		skipped, err := session.AddClip(part.FileName(), part)
		if skipped {
			s.log().Debug("skipping unnamed clip part", logging.String("session_id", session.ID))
		}
		return err
	default:
		// Unknown fields are drained so the next part can be read.
		_, err := io.Copy(io.Discard, part)
		return err
	}
}

func uploadErrorStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, fileutil.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) handleCheck(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	resp, err := api.CheckOutput(r.Context(), s.daemon.store, s.cfg.Paths.OutputDir, name)
	if err != nil {
		if errors.Is(err, api.ErrInvalidName) {
			s.writeError(w, http.StatusBadRequest, "invalid file name")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if resp.Status == api.CheckNotFound {
		s.writeJSON(w, http.StatusNotFound, resp)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	check, err := api.CheckOutput(r.Context(), s.daemon.store, s.cfg.Paths.OutputDir, name)
	if err != nil {
		if errors.Is(err, api.ErrInvalidName) {
			s.writeError(w, http.StatusBadRequest, "invalid file name")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !check.Ready {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	path, ok, err := api.OutputPath(s.cfg.Paths.OutputDir, name)
	if err != nil || !ok {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}

	file, err := os.Open(path)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "stat output")
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), file)
}

func (s *apiServer) handleResults(w http.ResponseWriter, r *http.Request) {
	resp, err := api.ListOutputs(s.cfg.Paths.OutputDir)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.queueSvc.List(r.Context(), r.URL.Query()["status"])
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: jobs})
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.queueSvc.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: *job})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()).API())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "api-server")
}
