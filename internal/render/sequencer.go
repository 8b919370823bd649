package render

import (
	"context"
	"fmt"
	"math"

	"montage/internal/logging"
	"montage/internal/services"
)

// maxPlaylistEntries bounds the repetitions of very short clips. Past it
// the concat manifest is unworkable and float accumulation may stall.
const maxPlaylistEntries = 100_000

// BuildPlaylist probes every candidate clip and repeats the usable ones, in
// order, until their cumulative duration reaches target. A clip that fails to
// probe or reports a non-positive duration is skipped. The last entry is kept
// whole even when it overshoots target.
func (r *Renderer) BuildPlaylist(ctx context.Context, clips []string, target float64) (Playlist, error) {
	logger := logging.WithContext(ctx, r.logger)
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return Playlist{}, services.Wrap(services.ErrValidation, "sequencing", "build playlist", fmt.Sprintf("invalid target duration %v", target), nil)
	}

	usable := make([]ClipDescriptor, 0, len(clips))
	for _, path := range clips {
		if err := ctx.Err(); err != nil {
			return Playlist{}, err
		}
		info, err := r.eng.Probe(ctx, path)
		if err != nil {
			logging.WarnWithContext(logger, "clip skipped", "clip_probe_failed",
				logging.String("clip", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the clip is a readable video file"),
				logging.String(logging.FieldImpact, "clip excluded from playlist"),
			)
			continue
		}
		if info.Duration <= 0 {
			logging.WarnWithContext(logger, "clip skipped", "clip_non_positive_duration",
				logging.String("clip", path),
				logging.Float64("duration", info.Duration),
				logging.String(logging.FieldImpact, "clip excluded from playlist"),
			)
			continue
		}
		usable = append(usable, ClipDescriptor{Path: path, Duration: info.Duration, Info: info})
	}

	if len(usable) == 0 {
		return Playlist{}, &NoUsableMediaError{
			Candidates: len(clips),
			Skipped:    len(clips),
			Reason:     "every clip failed probing",
		}
	}

	loop := newPlaylist(usable).Total()
	if loop <= 0 {
		return Playlist{}, &NoUsableMediaError{
			Candidates: len(clips),
			Skipped:    len(clips) - len(usable),
			Reason:     fmt.Sprintf("total clip duration %.3fs is not positive", loop),
		}
	}

	entries := make([]ClipDescriptor, 0, len(usable))
	accumulated := 0.0
	for i := 0; ; i++ {
		if i == maxPlaylistEntries {
			return Playlist{}, &NoUsableMediaError{
				Candidates: len(clips),
				Skipped:    len(clips) - len(usable),
				Reason:     fmt.Sprintf("clips totalling %gs need more than %d entries to reach %.3fs", loop, maxPlaylistEntries, target),
			}
		}
		clip := usable[i%len(usable)]
		entries = append(entries, clip)
		accumulated += clip.Duration
		if accumulated >= target {
			break
		}
	}

	playlist := newPlaylist(entries)
	logger.Debug("playlist built",
		logging.Int("usable_clips", len(usable)),
		logging.Int("skipped_clips", len(clips)-len(usable)),
		logging.Int("entries", playlist.Len()),
		logging.Float64("target_seconds", target),
		logging.Float64("playlist_seconds", playlist.Total()),
	)
	return playlist, nil
}
