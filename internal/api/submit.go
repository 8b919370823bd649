package api

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"montage/internal/config"
	"montage/internal/queue"
	"montage/internal/services"
)

// LocalSubmission names files already on the host that should be rendered
// as one job.
type LocalSubmission struct {
	AudioPath    string   `json:"audio_path"`
	SubtitlePath string   `json:"subtitle_path"`
	ClipPaths    []string `json:"clip_paths"`
}

// SubmitLocal copies the named files into a fresh upload session and
// enqueues it, exactly as an HTTP upload would. The session is removed when
// any file is rejected.
func SubmitLocal(ctx context.Context, cfg *config.Config, store JobCreator, req LocalSubmission) (*queue.Job, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "submit", "new session", "missing configuration", nil)
	}
	session, err := NewSession(cfg.Paths.UploadDir, LimitsFromConfig(cfg))
	if err != nil {
		return nil, err
	}

	job, err := fillSession(ctx, session, cfg, store, req)
	if err != nil {
		_ = session.Discard()
		return nil, err
	}
	return job, nil
}

func fillSession(ctx context.Context, session *Session, cfg *config.Config, store JobCreator, req LocalSubmission) (*queue.Job, error) {
	if req.AudioPath != "" {
		if err := copyInto(req.AudioPath, session.SaveAudio); err != nil {
			return nil, err
		}
	}
	if req.SubtitlePath != "" {
		if err := copyInto(req.SubtitlePath, session.SaveSubtitle); err != nil {
			return nil, err
		}
	}
	for _, clip := range req.ClipPaths {
		err := copyInto(clip, func(name string, r io.Reader) error {
			_, err := session.AddClip(name, r)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return session.Enqueue(ctx, store, cfg.Paths.OutputDir)
}

func copyInto(path string, save func(string, io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "submit", "open input", fmt.Sprintf("cannot read %s", path), err)
	}
	defer f.Close()
	return save(filepath.Base(path), f)
}
