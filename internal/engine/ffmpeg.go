package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"montage/internal/config"
	"montage/internal/logging"
	"montage/internal/media/ffprobe"
)

const waitDelay = 5 * time.Second

// FFmpeg runs ffprobe and ffmpeg as subprocesses.
type FFmpeg struct {
	ffmpegBinary  string
	ffprobeBinary string
	timeout       time.Duration
	slots         chan struct{}
	logger        *slog.Logger
}

// NewFFmpeg builds an engine from configuration. A max_concurrent of zero
// leaves invocations unbounded.
func NewFFmpeg(cfg *config.Config, logger *slog.Logger) *FFmpeg {
	e := &FFmpeg{
		ffmpegBinary:  "ffmpeg",
		ffprobeBinary: "ffprobe",
		logger:        logging.NewComponentLogger(logger, "engine"),
	}
	if cfg != nil {
		if b := strings.TrimSpace(cfg.Engine.FFmpegBinary); b != "" {
			e.ffmpegBinary = b
		}
		if b := strings.TrimSpace(cfg.Engine.FFprobeBinary); b != "" {
			e.ffprobeBinary = b
		}
		e.timeout = cfg.StageTimeout()
		if cfg.Engine.MaxConcurrent > 0 {
			e.slots = make(chan struct{}, cfg.Engine.MaxConcurrent)
		}
	}
	return e
}

// Probe inspects path via ffprobe.
func (e *FFmpeg) Probe(ctx context.Context, path string) (MediaInfo, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return MediaInfo{}, err
	}
	defer release()

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	result, err := ffprobe.Inspect(ctx, e.ffprobeBinary, path)
	if err != nil {
		engineErr := &Error{Label: "probe", Argv: []string{e.ffprobeBinary, path}, Err: err}
		var probeErr *ffprobe.Error
		if errors.As(err, &probeErr) {
			engineErr.Stderr = probeErr.Stderr
			engineErr.Err = probeErr.Err
			var exitErr *exec.ExitError
			if errors.As(probeErr.Err, &exitErr) {
				engineErr.ExitCode = exitErr.ExitCode()
			}
		}
		return MediaInfo{}, engineErr
	}
	return infoFromResult(path, result)
}

func infoFromResult(path string, result ffprobe.Result) (MediaInfo, error) {
	duration, ok := result.DurationSeconds()
	if !ok {
		return MediaInfo{}, fmt.Errorf("probe %s: %w", path, ErrNoDuration)
	}
	info := MediaInfo{
		Path:      path,
		Duration:  duration,
		Container: result.Format.FormatName,
	}
	if video, ok := result.FirstVideo(); ok {
		info.VideoCodec = video.CodecName
		info.Width = video.Width
		info.Height = video.Height
		info.FrameRate = video.FrameRate()
		info.PixFmt = video.PixFmt
	}
	if audio, ok := result.FirstAudio(); ok {
		info.AudioCodec = audio.CodecName
		info.HasAudio = true
	}
	return info, nil
}

// Run executes spec with ffmpeg.
func (e *FFmpeg) Run(ctx context.Context, spec Spec) error {
	release, err := e.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return e.invoke(ctx, spec)
}

func (e *FFmpeg) invoke(ctx context.Context, spec Spec) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	argv := spec.Argv()
	logger := logging.WithContext(ctx, e.logger)
	logger.Debug("engine invocation",
		logging.String("label", spec.Label),
		logging.String("command", e.ffmpegBinary+" "+strings.Join(argv, " ")),
	)

	started := time.Now()
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.ffmpegBinary, argv...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	runErr := cmd.Run()
	if runErr == nil {
		logger.Debug("engine invocation finished",
			logging.String("label", spec.Label),
			logging.Duration("elapsed", time.Since(started)),
		)
		return nil
	}

	engineErr := &Error{
		Label:  spec.Label,
		Argv:   append([]string{e.ffmpegBinary}, argv...),
		Stderr: stderr.String(),
		Err:    runErr,
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		engineErr.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		engineErr.Err = ctxErr
	}
	return engineErr
}

func (e *FFmpeg) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *FFmpeg) acquire(ctx context.Context) (func(), error) {
	if e.slots == nil {
		return func() {}, nil
	}
	select {
	case e.slots <- struct{}{}:
		return func() { <-e.slots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
