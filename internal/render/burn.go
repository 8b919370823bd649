package render

import (
	"context"
	"errors"
	"os"

	"montage/internal/engine"
	"montage/internal/logging"
)

// BurnSubtitles renders subtitlePath into the frames of video and writes the
// result straight to outputPath. A partial output is removed on failure only
// when this call created it.
func (r *Renderer) BurnSubtitles(ctx context.Context, job *Job, video *MediaHandle, subtitlePath, outputPath string) (*MediaHandle, error) {
	filter, err := subtitleFilter(subtitlePath, r.settings.Style)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, r.logger)

	_, statErr := os.Stat(outputPath)
	preexisting := statErr == nil || !errors.Is(statErr, os.ErrNotExist)

	args := []string{"-vf", filter}
	args = append(args, r.videoEncodeArgs()...)
	args = append(args, "-c:a", "copy", "-movflags", "+faststart")

	spec := engine.Spec{
		Label:  "burn",
		Inputs: []engine.Input{{Path: video.Path}},
		Args:   args,
		Output: outputPath,
	}

	logger.Info("burning subtitles",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("subtitles", subtitlePath),
		logging.String("output", outputPath),
	)
	if err := r.eng.Run(ctx, spec); err != nil {
		if !preexisting {
			if rmErr := removePartial(outputPath); rmErr != nil {
				logger.Warn("partial output not removed", logging.String("path", outputPath), logging.Error(rmErr))
			}
		}
		return nil, &SubtitleError{Output: outputPath, Err: err}
	}
	return NewMediaHandle(r.eng, outputPath), nil
}
