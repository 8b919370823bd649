package render

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"montage/internal/config"
	"montage/internal/engine"
	"montage/internal/logging"
	"montage/internal/services"
)

// Concatenate joins the playlist into one intermediate file via the concat
// demuxer. The manifest is removed on return; a partial output is removed on
// failure.
func (r *Renderer) Concatenate(ctx context.Context, job *Job, playlist Playlist) (*MediaHandle, error) {
	if playlist.Len() == 0 {
		return nil, &NoUsableMediaError{Reason: "playlist is empty"}
	}
	logger := logging.WithContext(ctx, r.logger)

	manifest := r.scratchPath(job, "manifest", "txt")
	if err := os.WriteFile(manifest, []byte(buildManifest(playlist.Paths())), 0o644); err != nil {
		return nil, services.Wrap(services.ErrTransient, "concatenating", "write manifest", manifest, err)
	}
	defer func() {
		if err := removePartial(manifest); err != nil {
			logging.WarnWithContext(logger, "manifest cleanup failed", "cleanup_failed",
				logging.String("path", manifest),
				logging.Error(err),
				logging.String(logging.FieldImpact, "stale manifest left in scratch directory"),
			)
		}
	}()

	output := r.intermediatePath(job, "concat", "mp4")
	strategy := r.resolveConcatStrategy(playlist)
	spec := engine.Spec{
		Label: "concat",
		Inputs: []engine.Input{{
			Path:    manifest,
			Options: []string{"-f", "concat", "-safe", "0"},
		}},
		Args:   r.concatArgs(strategy, playlist),
		Output: output,
	}

	logger.Info("concatenating clips",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Int("entries", playlist.Len()),
		logging.String("strategy", strategy),
	)
	if err := r.eng.Run(ctx, spec); err != nil {
		if rmErr := removePartial(output); rmErr != nil {
			logger.Warn("partial concat output not removed", logging.String("path", output), logging.Error(rmErr))
		}
		return nil, &ConcatenationError{Output: output, Err: err}
	}
	return NewMediaHandle(r.eng, output), nil
}

func (r *Renderer) resolveConcatStrategy(playlist Playlist) string {
	switch strings.ToLower(strings.TrimSpace(r.settings.ConcatStrategy)) {
	case config.ConcatCopy:
		return config.ConcatCopy
	case config.ConcatAuto:
		if playlist.Uniform() {
			return config.ConcatCopy
		}
		return config.ConcatReencode
	default:
		return config.ConcatReencode
	}
}

func (r *Renderer) concatArgs(strategy string, playlist Playlist) []string {
	if strategy == config.ConcatCopy {
		return []string{"-c", "copy"}
	}
	args := []string{}
	if vf := r.normalizeFilter(playlist); vf != "" {
		args = append(args, "-vf", vf)
	}
	args = append(args, r.videoEncodeArgs()...)
	if playlist.allHaveAudio() {
		args = append(args, r.audioEncodeArgs()...)
	} else {
		args = append(args, "-an")
	}
	return args
}

// normalizeFilter scales and pads every frame to the first clip's geometry
// and pins frame rate and pixel format.
func (r *Renderer) normalizeFilter(playlist Playlist) string {
	var filters []string
	first := playlist.entries[0].Info
	if first.Width > 0 && first.Height > 0 {
		w, h := even(first.Width), even(first.Height)
		filters = append(filters,
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h),
			fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", w, h),
			"setsar=1",
		)
	}
	if r.settings.FrameRate > 0 {
		filters = append(filters, "fps="+strconv.Itoa(r.settings.FrameRate))
	}
	if pf := strings.TrimSpace(r.settings.PixelFormat); pf != "" {
		filters = append(filters, "format="+pf)
	}
	return strings.Join(filters, ",")
}

func even(v int) int {
	if v%2 != 0 {
		return v - 1
	}
	return v
}

func (r *Renderer) videoEncodeArgs() []string {
	args := []string{"-c:v", orDefault(r.settings.VideoCodec, "libx264")}
	if preset := strings.TrimSpace(r.settings.Preset); preset != "" {
		args = append(args, "-preset", preset)
	}
	if r.settings.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(r.settings.CRF))
	}
	if pf := strings.TrimSpace(r.settings.PixelFormat); pf != "" {
		args = append(args, "-pix_fmt", pf)
	}
	return args
}

func (r *Renderer) audioEncodeArgs() []string {
	args := []string{"-c:a", orDefault(r.settings.AudioCodec, "aac")}
	if br := strings.TrimSpace(r.settings.AudioBitrate); br != "" {
		args = append(args, "-b:a", br)
	}
	return args
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
