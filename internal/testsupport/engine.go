package testsupport

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"montage/internal/engine"
)

// FakeEngine is a scripted engine.Engine. It records every probe and Spec,
// writes a placeholder file at each successful Spec output and can be told to
// fail probes or runs.
type FakeEngine struct {
	mu          sync.Mutex
	media       map[string]engine.MediaInfo
	probeErrors map[string]error
	runFailures map[string]string
	fallback    *engine.MediaInfo
	// PartialOnFailure writes a partial output before a scripted run failure.
	PartialOnFailure bool

	probes    []string
	specs     []engine.Spec
	manifests []string
}

// NewFakeEngine returns an empty fake.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		media:       make(map[string]engine.MediaInfo),
		probeErrors: make(map[string]error),
		runFailures: make(map[string]string),
	}
}

// SetDuration registers path as a 1280x720 h264/aac file of the given length.
func (f *FakeEngine) SetDuration(path string, seconds float64) {
	f.SetMedia(engine.MediaInfo{
		Path:       path,
		Duration:   seconds,
		Container:  "mov,mp4,m4a,3gp,3g2,mj2",
		VideoCodec: "h264",
		AudioCodec: "aac",
		Width:      1280,
		Height:     720,
		FrameRate:  30,
		PixFmt:     "yuv420p",
		HasAudio:   true,
	})
}

// SetDefaultDuration makes probes of unregistered paths succeed with the
// same media layout SetDuration uses.
func (f *FakeEngine) SetDefaultDuration(seconds float64) {
	f.SetDuration("", seconds)
	f.mu.Lock()
	defer f.mu.Unlock()
	info := f.media[""]
	delete(f.media, "")
	f.fallback = &info
}

// SetMedia registers a full probe result.
func (f *FakeEngine) SetMedia(info engine.MediaInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.media[info.Path] = info
}

// FailProbe makes probes of path return err.
func (f *FakeEngine) FailProbe(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeErrors[path] = err
}

// FailRun makes runs with the given label exit 1 with stderr.
func (f *FakeEngine) FailRun(label, stderr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runFailures[label] = stderr
}

func (f *FakeEngine) Probe(ctx context.Context, path string) (engine.MediaInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes = append(f.probes, path)
	if err := ctx.Err(); err != nil {
		return engine.MediaInfo{}, err
	}
	if err, ok := f.probeErrors[path]; ok {
		return engine.MediaInfo{}, err
	}
	info, ok := f.media[path]
	if !ok && f.fallback != nil {
		info = *f.fallback
		info.Path = path
		ok = true
	}
	if !ok {
		return engine.MediaInfo{}, &engine.Error{
			Label:    "probe",
			Argv:     []string{"ffprobe", path},
			ExitCode: 1,
			Stderr:   path + ": No such file or directory",
		}
	}
	return info, nil
}

func (f *FakeEngine) Run(ctx context.Context, spec engine.Spec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.specs = append(f.specs, spec)
	for _, in := range spec.Inputs {
		if slices.Contains(in.Options, "concat") {
			data, err := os.ReadFile(in.Path)
			if err != nil {
				return fmt.Errorf("fake engine read manifest: %w", err)
			}
			f.manifests = append(f.manifests, string(data))
		}
	}
	if err := ctx.Err(); err != nil {
		return &engine.Error{Label: spec.Label, Argv: spec.Argv(), Err: err}
	}
	if stderr, ok := f.runFailures[spec.Label]; ok {
		if f.PartialOnFailure && spec.Output != "" {
			_ = os.WriteFile(spec.Output, []byte("partial"), 0o644)
		}
		return &engine.Error{Label: spec.Label, Argv: spec.Argv(), ExitCode: 1, Stderr: stderr}
	}
	if spec.Output != "" {
		if err := os.WriteFile(spec.Output, []byte("rendered:"+spec.Label), 0o644); err != nil {
			return fmt.Errorf("fake engine write output: %w", err)
		}
	}
	return nil
}

// Probes returns the probed paths in call order.
func (f *FakeEngine) Probes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.probes)
}

// Specs returns the executed specs in call order.
func (f *FakeEngine) Specs() []engine.Spec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.specs)
}

// Manifests returns the concat manifests as they existed when each run started.
func (f *FakeEngine) Manifests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.manifests)
}
