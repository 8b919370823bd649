package render

import (
	"context"
	"strconv"

	"montage/internal/engine"
	"montage/internal/logging"
)

// AttachAudio replaces the audio of video with the first audio stream of
// audio and pins the result to exactly target seconds.
func (r *Renderer) AttachAudio(ctx context.Context, job *Job, video, audio *MediaHandle, target float64) (*MediaHandle, error) {
	logger := logging.WithContext(ctx, r.logger)
	output := r.intermediatePath(job, "mux", "mp4")

	args := []string{"-map", "0:v:0", "-map", "1:a:0"}
	args = append(args, r.videoEncodeArgs()...)
	args = append(args, r.audioEncodeArgs()...)
	args = append(args, "-t", formatSeconds(target), "-movflags", "+faststart")

	spec := engine.Spec{
		Label:  "mux",
		Inputs: []engine.Input{{Path: video.Path}, {Path: audio.Path}},
		Args:   args,
		Output: output,
	}

	logger.Info("attaching audio",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Float64("target_seconds", target),
	)
	if err := r.eng.Run(ctx, spec); err != nil {
		if rmErr := removePartial(output); rmErr != nil {
			logger.Warn("partial mux output not removed", logging.String("path", output), logging.Error(rmErr))
		}
		return nil, &MuxError{Output: output, Err: err}
	}
	return NewMediaHandle(r.eng, output), nil
}

func formatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}
