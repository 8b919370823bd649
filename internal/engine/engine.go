package engine

import (
	"context"
	"strings"
)

// Engine is the transcoding capability the render pipeline is built on.
type Engine interface {
	Probe(ctx context.Context, path string) (MediaInfo, error)
	Run(ctx context.Context, spec Spec) error
}

// MediaInfo is a metadata snapshot of one media file.
type MediaInfo struct {
	Path       string
	Duration   float64
	Container  string
	VideoCodec string
	AudioCodec string
	Width      int
	Height     int
	FrameRate  float64
	PixFmt     string
	HasAudio   bool
}

// HasVideo reports whether a video stream was found.
func (m MediaInfo) HasVideo() bool {
	return m.VideoCodec != ""
}

// Input is one engine input with the options that precede its -i flag.
type Input struct {
	Path    string
	Options []string
}

// Spec declares a single engine invocation.
type Spec struct {
	// Label names the invocation in logs and errors (concat, mux, burn).
	Label  string
	Inputs []Input
	Args   []string
	Output string
}

// Argv renders the ffmpeg argument list without the binary name.
func (s Spec) Argv() []string {
	argv := []string{"-hide_banner", "-nostdin", "-y"}
	for _, in := range s.Inputs {
		argv = append(argv, in.Options...)
		argv = append(argv, "-i", in.Path)
	}
	argv = append(argv, s.Args...)
	if strings.TrimSpace(s.Output) != "" {
		argv = append(argv, s.Output)
	}
	return argv
}
