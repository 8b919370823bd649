package render

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"montage/internal/config"
	"montage/internal/engine"
	"montage/internal/logging"
	"montage/internal/services"
)

// Settings are the encode parameters shared by every stage.
type Settings struct {
	VideoCodec     string
	AudioCodec     string
	Preset         string
	CRF            int
	AudioBitrate   string
	PixelFormat    string
	FrameRate      int
	ConcatStrategy string
	Style          SubtitleStyle
}

// SettingsFromConfig copies the [engine] and [subtitles] sections.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		VideoCodec:     cfg.Engine.VideoCodec,
		AudioCodec:     cfg.Engine.AudioCodec,
		Preset:         cfg.Engine.Preset,
		CRF:            cfg.Engine.CRF,
		AudioBitrate:   cfg.Engine.AudioBitrate,
		PixelFormat:    cfg.Engine.PixelFormat,
		FrameRate:      cfg.Engine.FrameRate,
		ConcatStrategy: cfg.Engine.ConcatStrategy,
		Style:          StyleFromConfig(cfg.Subtitles),
	}
}

// Renderer runs the render stages against an engine.
type Renderer struct {
	eng        engine.Engine
	scratchDir string
	settings   Settings
	logger     *slog.Logger
}

// New constructs a Renderer. scratchDir must already exist; the renderer never
// creates or removes it.
func New(eng engine.Engine, scratchDir string, settings Settings, logger *slog.Logger) (*Renderer, error) {
	if eng == nil {
		return nil, services.Wrap(services.ErrConfiguration, "render", "init", "engine is required", nil)
	}
	scratchDir = strings.TrimSpace(scratchDir)
	if scratchDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "render", "init", "scratch directory is required", nil)
	}
	info, err := os.Stat(scratchDir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "render", "init", "scratch directory unavailable", err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrConfiguration, "render", "init", fmt.Sprintf("%s is not a directory", scratchDir), nil)
	}
	return &Renderer{
		eng:        eng,
		scratchDir: scratchDir,
		settings:   settings,
		logger:     logging.NewComponentLogger(logger, "render"),
	}, nil
}

// NewFromConfig builds a Renderer using cfg's scratch directory and encode settings.
func NewFromConfig(cfg *config.Config, eng engine.Engine, logger *slog.Logger) (*Renderer, error) {
	return New(eng, cfg.Paths.ScratchDir, SettingsFromConfig(cfg), logger)
}

// WithLogger returns a copy of r that logs to logger. The copy shares the
// engine and settings.
func (r *Renderer) WithLogger(logger *slog.Logger) *Renderer {
	clone := *r
	clone.logger = logging.NewComponentLogger(logger, "render")
	return &clone
}

// Job is one render request. Paths are expected to be absolute.
type Job struct {
	ID           string
	AudioPath    string
	SubtitlePath string
	ClipPaths    []string
	OutputPath   string

	mu            sync.Mutex
	intermediates []string
}

// Intermediates returns the intermediate paths recorded so far.
func (j *Job) Intermediates() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.intermediates)
}

func (j *Job) validate() error {
	var problems []string
	if strings.TrimSpace(j.AudioPath) == "" {
		problems = append(problems, "audio path is required")
	}
	if strings.TrimSpace(j.SubtitlePath) == "" {
		problems = append(problems, "subtitle path is required")
	}
	if len(j.ClipPaths) == 0 {
		problems = append(problems, "at least one clip is required")
	}
	if strings.TrimSpace(j.OutputPath) == "" {
		problems = append(problems, "output path is required")
	}
	if len(problems) > 0 {
		return services.Wrap(services.ErrValidation, "render", "validate job", strings.Join(problems, "; "), nil)
	}
	if _, err := escapeFilterPath(j.SubtitlePath); err != nil {
		return err
	}
	if strings.TrimSpace(j.ID) == "" {
		j.ID = uuid.NewString()
	}
	return nil
}

// intermediatePath reserves <scratch>/<jobID>-<kind>-<uuid>.<ext> and records
// it for cleanup.
func (r *Renderer) intermediatePath(job *Job, kind, ext string) string {
	path := r.scratchPath(job, kind, ext)
	job.mu.Lock()
	job.intermediates = append(job.intermediates, path)
	job.mu.Unlock()
	return path
}

func (r *Renderer) scratchPath(job *Job, kind, ext string) string {
	id := job.ID
	if id == "" {
		id = "adhoc"
	}
	name := fmt.Sprintf("%s-%s-%s.%s", id, kind, uuid.NewString(), ext)
	return filepath.Join(r.scratchDir, name)
}

// removePartial deletes a failed stage's output. Missing files are ignored.
func removePartial(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
