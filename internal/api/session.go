package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"montage/internal/config"
	"montage/internal/fileutil"
	"montage/internal/queue"
	"montage/internal/services"
)

// SubtitleExt is the only accepted subtitle extension.
const SubtitleExt = ".srt"

// SessionLimits bounds what a session accepts.
type SessionLimits struct {
	// MaxBytes caps the combined size of every file in the session. Zero
	// disables the cap.
	MaxBytes int64
	AudioExt []string
	VideoExt []string
}

// LimitsFromConfig copies the [api] upload settings.
func LimitsFromConfig(cfg *config.Config) SessionLimits {
	return SessionLimits{
		MaxBytes: cfg.MaxUploadBytes(),
		AudioExt: cfg.API.AllowedAudioExt,
		VideoExt: cfg.API.AllowedVideoExt,
	}
}

// JobCreator enqueues jobs.
type JobCreator interface {
	NewJob(ctx context.Context, params queue.NewJobParams) (*queue.Job, error)
}

// Session collects the inputs of one job in <upload_dir>/<session id>.
type Session struct {
	ID           string
	Dir          string
	AudioPath    string
	SubtitlePath string
	ClipPaths    []string

	limits SessionLimits
	used   int64
}

// NewSession creates a fresh session directory under uploadDir.
func NewSession(uploadDir string, limits SessionLimits) (*Session, error) {
	if strings.TrimSpace(uploadDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "new session", "upload directory not configured", nil)
	}
	id := uuid.NewString()
	dir := filepath.Join(uploadDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &Session{ID: id, Dir: dir, limits: limits}, nil
}

// SaveAudio stores the audio track as audio_<session>_<name>.
func (s *Session) SaveAudio(name string, r io.Reader) error {
	if s.AudioPath != "" {
		return services.Wrap(services.ErrValidation, "upload", "save audio", "only one audio file is accepted", nil)
	}
	clean := fileutil.SanitizeName(name)
	if !fileutil.HasAllowedExt(clean, s.limits.AudioExt) {
		return unsupportedExt("audio", name, s.limits.AudioExt)
	}
	path, err := s.save(fmt.Sprintf("audio_%s_%s", s.ID, clean), r)
	if err != nil {
		return err
	}
	s.AudioPath = path
	return nil
}

// SaveSubtitle stores the caption file as srt_<session>_<name>.
func (s *Session) SaveSubtitle(name string, r io.Reader) error {
	if s.SubtitlePath != "" {
		return services.Wrap(services.ErrValidation, "upload", "save subtitles", "only one subtitle file is accepted", nil)
	}
	clean := fileutil.SanitizeName(name)
	if !fileutil.HasAllowedExt(clean, []string{SubtitleExt}) {
		return unsupportedExt("subtitle", name, []string{SubtitleExt})
	}
	path, err := s.save(fmt.Sprintf("srt_%s_%s", s.ID, clean), r)
	if err != nil {
		return err
	}
	s.SubtitlePath = path
	return nil
}

// AddClip stores a clip as video_<uuid>_<name> and keeps upload order.
// Clips without a name are skipped and reported with skipped=true.
func (s *Session) AddClip(name string, r io.Reader) (skipped bool, err error) {
	if strings.TrimSpace(name) == "" {
		return true, nil
	}
	clean := fileutil.SanitizeName(name)
	if !fileutil.HasAllowedExt(clean, s.limits.VideoExt) {
		return false, unsupportedExt("video", name, s.limits.VideoExt)
	}
	path, err := s.save(fmt.Sprintf("video_%s_%s", uuid.NewString(), clean), r)
	if err != nil {
		return false, err
	}
	s.ClipPaths = append(s.ClipPaths, path)
	return false, nil
}

// OutputFilename is the name of the file the job renders.
func (s *Session) OutputFilename() string {
	return "output_" + s.ID + ".mp4"
}

// Enqueue validates the collected inputs and records a pending job writing
// to <outputDir>/output_<session>.mp4.
func (s *Session) Enqueue(ctx context.Context, store JobCreator, outputDir string) (*queue.Job, error) {
	var missing []string
	if s.AudioPath == "" {
		missing = append(missing, "audio")
	}
	if s.SubtitlePath == "" {
		missing = append(missing, "srt")
	}
	if len(s.ClipPaths) == 0 {
		missing = append(missing, "videos")
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrValidation, "upload", "enqueue", "missing "+strings.Join(missing, ", "), nil)
	}
	return store.NewJob(ctx, queue.NewJobParams{
		SessionID:    s.ID,
		AudioPath:    s.AudioPath,
		SubtitlePath: s.SubtitlePath,
		ClipPaths:    append([]string(nil), s.ClipPaths...),
		OutputPath:   filepath.Join(outputDir, s.OutputFilename()),
	})
}

// Discard removes the session directory and everything saved so far.
func (s *Session) Discard() error {
	if s == nil || s.Dir == "" {
		return nil
	}
	return os.RemoveAll(s.Dir)
}

func (s *Session) save(name string, r io.Reader) (string, error) {
	path := filepath.Join(s.Dir, name)
	limit := int64(0)
	if s.limits.MaxBytes > 0 {
		limit = s.limits.MaxBytes - s.used
		if limit <= 0 {
			return "", tooLarge(s.limits.MaxBytes)
		}
	}
	written, err := fileutil.WriteStream(path, r, limit)
	if err != nil {
		if errors.Is(err, fileutil.ErrTooLarge) {
			return "", tooLarge(s.limits.MaxBytes)
		}
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	s.used += written
	return path, nil
}

func tooLarge(limit int64) error {
	return services.Wrap(services.ErrValidation, "upload", "save",
		fmt.Sprintf("upload exceeds %d bytes", limit), fileutil.ErrTooLarge)
}

func unsupportedExt(kind, name string, allowed []string) error {
	return services.Wrap(services.ErrValidation, "upload", "save "+kind,
		fmt.Sprintf("%q has an unsupported extension (allowed: %s)", name, strings.Join(allowed, ", ")), nil)
}
