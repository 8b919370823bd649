package render

import (
	"context"
	"slices"
	"sync"

	"github.com/samber/lo"

	"montage/internal/engine"
)

// MediaHandle is a file path with a lazily fetched metadata snapshot.
type MediaHandle struct {
	Path string

	eng    engine.Engine
	mu     sync.Mutex
	info   engine.MediaInfo
	probed bool
}

// NewMediaHandle wraps path; metadata is fetched on first Info call.
func NewMediaHandle(eng engine.Engine, path string) *MediaHandle {
	return &MediaHandle{Path: path, eng: eng}
}

func probedHandle(eng engine.Engine, info engine.MediaInfo) *MediaHandle {
	return &MediaHandle{Path: info.Path, eng: eng, info: info, probed: true}
}

// Info returns the metadata snapshot, probing once on success.
func (h *MediaHandle) Info(ctx context.Context) (engine.MediaInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.probed {
		return h.info, nil
	}
	info, err := h.eng.Probe(ctx, h.Path)
	if err != nil {
		return engine.MediaInfo{}, &ProbeError{Path: h.Path, Err: err}
	}
	h.info = info
	h.probed = true
	return info, nil
}

// Duration returns the probed duration in seconds.
func (h *MediaHandle) Duration(ctx context.Context) (float64, error) {
	info, err := h.Info(ctx)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

// ClipDescriptor is a usable clip. Duration is always positive.
type ClipDescriptor struct {
	Path     string
	Duration float64
	Info     engine.MediaInfo
}

// Playlist is an ordered, possibly repeating list of clips. It is immutable
// once built.
type Playlist struct {
	entries []ClipDescriptor
	total   float64
}

func newPlaylist(entries []ClipDescriptor) Playlist {
	return Playlist{
		entries: entries,
		total:   lo.SumBy(entries, func(c ClipDescriptor) float64 { return c.Duration }),
	}
}

// Len returns the number of entries, counting repeats.
func (p Playlist) Len() int { return len(p.entries) }

// Entries returns a copy of the ordered entries.
func (p Playlist) Entries() []ClipDescriptor { return slices.Clone(p.entries) }

// Paths returns the entry paths in playback order.
func (p Playlist) Paths() []string {
	return lo.Map(p.entries, func(c ClipDescriptor, _ int) string { return c.Path })
}

// Total returns the cumulative duration in seconds.
func (p Playlist) Total() float64 { return p.total }

// Uniform reports whether every entry shares codec, resolution, frame rate and
// pixel format, which is what stream-copy concatenation needs.
func (p Playlist) Uniform() bool {
	if len(p.entries) == 0 {
		return false
	}
	first := p.entries[0].Info
	if first.VideoCodec == "" {
		return false
	}
	return lo.EveryBy(p.entries, func(c ClipDescriptor) bool {
		info := c.Info
		return info.VideoCodec == first.VideoCodec &&
			info.Width == first.Width &&
			info.Height == first.Height &&
			info.FrameRate == first.FrameRate &&
			info.PixFmt == first.PixFmt &&
			info.AudioCodec == first.AudioCodec
	})
}

// allHaveAudio reports whether every entry carries an audio stream.
func (p Playlist) allHaveAudio() bool {
	return len(p.entries) > 0 && lo.EveryBy(p.entries, func(c ClipDescriptor) bool { return c.Info.HasAudio })
}
