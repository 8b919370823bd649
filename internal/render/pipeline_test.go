package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"montage/internal/services"
)

type recorder struct {
	transitions []Transition
}

func (r *recorder) observe(t Transition) {
	r.transitions = append(r.transitions, t)
}

func (r *recorder) states() []State {
	out := make([]State, 0, len(r.transitions))
	for _, t := range r.transitions {
		out = append(out, t.To)
	}
	return out
}

func newJob(f fixture, clips ...string) *Job {
	return &Job{
		ID:           "job42",
		AudioPath:    f.clip("song.mp3", 30),
		SubtitlePath: filepath.Join(f.dir, "lyrics.srt"),
		ClipPaths:    clips,
		OutputPath:   filepath.Join(f.dir, "output.mp4"),
	}
}

func equalStates(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRunSucceedsAndCleansIntermediates(t *testing.T) {
	f := newFixture(t)
	job := newJob(f, f.clip("a.mp4", 10), f.clip("b.mp4", 12), f.clip("c.mp4", 8))
	rec := &recorder{}

	final, err := f.r.Run(context.Background(), job, rec.observe)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if final.Path != job.OutputPath {
		t.Fatalf("expected final output %s, got %s", job.OutputPath, final.Path)
	}
	if _, err := os.Stat(job.OutputPath); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if entries := f.scratchEntries(t); len(entries) != 0 {
		t.Fatalf("expected empty scratch, got %v", entries)
	}
	if got := len(job.Intermediates()); got != 2 {
		t.Fatalf("expected two recorded intermediates, got %d", got)
	}

	want := []State{StateProbing, StateSequencing, StateConcatenating, StateMuxing, StateBurning, StateDone}
	if !equalStates(rec.states(), want) {
		t.Fatalf("unexpected transitions %v", rec.states())
	}
	if rec.transitions[0].From != StateStart || rec.transitions[0].JobID != "job42" {
		t.Fatalf("unexpected first transition %+v", rec.transitions[0])
	}

	specs := f.fake.Specs()
	if len(specs) != 3 || specs[0].Label != "concat" || specs[1].Label != "mux" || specs[2].Label != "burn" {
		t.Fatalf("unexpected engine runs %+v", specs)
	}
	if manifests := f.fake.Manifests(); len(manifests) != 1 {
		t.Fatalf("expected one manifest, got %d", len(manifests))
	}
}

func TestRunFailureCleansUpAndReportsState(t *testing.T) {
	f := newFixture(t)
	f.fake.PartialOnFailure = true
	f.fake.FailRun("mux", "Conversion failed!")
	job := newJob(f, f.clip("a.mp4", 10), f.clip("b.mp4", 5))
	rec := &recorder{}

	_, err := f.r.Run(context.Background(), job, rec.observe)
	var muxErr *MuxError
	if !errors.As(err, &muxErr) {
		t.Fatalf("expected MuxError, got %v", err)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if Diagnostics(err) != "Conversion failed!" {
		t.Fatalf("unexpected diagnostics %q", Diagnostics(err))
	}
	if entries := f.scratchEntries(t); len(entries) != 0 {
		t.Fatalf("expected empty scratch, got %v", entries)
	}
	if _, statErr := os.Stat(job.OutputPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected no output, stat err %v", statErr)
	}
	states := rec.states()
	if states[len(states)-1] != StateFailed || states[len(states)-2] != StateMuxing {
		t.Fatalf("unexpected transitions %v", states)
	}
	last := rec.transitions[len(rec.transitions)-1]
	if last.From != StateMuxing || last.Err == nil {
		t.Fatalf("unexpected failure transition %+v", last)
	}
}

func TestRunWithOneCorruptClip(t *testing.T) {
	f := newFixture(t)
	corrupt := filepath.Join(f.dir, "corrupt.mp4")
	f.fake.FailProbe(corrupt, errors.New("invalid data"))
	job := newJob(f, f.clip("a.mp4", 10), corrupt, f.clip("b.mp4", 12))

	if _, err := f.r.Run(context.Background(), job, nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	manifest := f.fake.Manifests()[0]
	if want := "file '" + corrupt + "'"; strings.Contains(manifest, want) {
		t.Fatalf("corrupt clip in manifest: %q", manifest)
	}
}

func TestRunAllClipsCorrupt(t *testing.T) {
	f := newFixture(t)
	var clips []string
	for _, name := range []string{"x.mp4", "y.mp4"} {
		p := filepath.Join(f.dir, name)
		f.fake.FailProbe(p, errors.New("invalid data"))
		clips = append(clips, p)
	}
	job := newJob(f, clips...)
	rec := &recorder{}

	_, err := f.r.Run(context.Background(), job, rec.observe)
	var noMedia *NoUsableMediaError
	if !errors.As(err, &noMedia) {
		t.Fatalf("expected NoUsableMediaError, got %v", err)
	}
	if services.Classify(err) != "no_usable_media" {
		t.Fatalf("unexpected classification %q", services.Classify(err))
	}
	if len(f.fake.Specs()) != 0 {
		t.Fatal("expected no engine runs")
	}
	if len(job.Intermediates()) != 0 {
		t.Fatalf("expected no intermediates, got %v", job.Intermediates())
	}
	if entries := f.scratchEntries(t); len(entries) != 0 {
		t.Fatalf("expected empty scratch, got %v", entries)
	}
	want := []State{StateProbing, StateSequencing, StateFailed}
	if !equalStates(rec.states(), want) {
		t.Fatalf("unexpected transitions %v", rec.states())
	}
}

func TestRunAudioProbeFailure(t *testing.T) {
	f := newFixture(t)
	job := newJob(f, f.clip("a.mp4", 10))
	job.AudioPath = filepath.Join(f.dir, "missing.mp3")

	_, err := f.r.Run(context.Background(), job, nil)
	var probeErr *ProbeError
	if !errors.As(err, &probeErr) || probeErr.Path != job.AudioPath {
		t.Fatalf("expected ProbeError for audio, got %v", err)
	}
}

func TestRunAudioZeroDuration(t *testing.T) {
	f := newFixture(t)
	job := newJob(f, f.clip("a.mp4", 10))
	f.fake.SetDuration(job.AudioPath, 0)

	_, err := f.r.Run(context.Background(), job, nil)
	var probeErr *ProbeError
	if !errors.As(err, &probeErr) {
		t.Fatalf("expected ProbeError, got %v", err)
	}
}

func TestRunRejectsQuotedSubtitlePath(t *testing.T) {
	f := newFixture(t)
	job := newJob(f, f.clip("a.mp4", 40))
	job.SubtitlePath = filepath.Join(f.dir, "it's.srt")
	rec := &recorder{}

	_, err := f.r.Run(context.Background(), job, rec.observe)
	var pathErr *UnsupportedPathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected UnsupportedPathError, got %v", err)
	}
	if entries := f.scratchEntries(t); len(entries) != 0 {
		t.Fatalf("expected empty scratch, got %v", entries)
	}
	if specs := f.fake.Specs(); len(specs) != 0 {
		t.Fatalf("expected no engine runs before rejecting the path, got %+v", specs)
	}
	if probes := f.fake.Probes(); len(probes) != 0 {
		t.Fatalf("expected no probes, got %v", probes)
	}
	if !equalStates(rec.states(), []State{StateFailed}) {
		t.Fatalf("unexpected transitions %v", rec.states())
	}
}

func TestRunBurnFailureRemovesIntermediatesAndTarget(t *testing.T) {
	f := newFixture(t)
	f.fake.PartialOnFailure = true
	f.fake.FailRun("burn", "Unable to open subtitles")
	job := newJob(f, f.clip("a.mp4", 10), f.clip("b.mp4", 12), f.clip("c.mp4", 8))
	rec := &recorder{}

	_, err := f.r.Run(context.Background(), job, rec.observe)
	var subErr *SubtitleError
	if !errors.As(err, &subErr) {
		t.Fatalf("expected SubtitleError, got %v", err)
	}
	if Diagnostics(err) != "Unable to open subtitles" {
		t.Fatalf("unexpected diagnostics %q", Diagnostics(err))
	}
	if got := len(job.Intermediates()); got != 2 {
		t.Fatalf("expected concat and mux intermediates recorded, got %d", got)
	}
	if entries := f.scratchEntries(t); len(entries) != 0 {
		t.Fatalf("expected empty scratch, got %v", entries)
	}
	if _, statErr := os.Stat(job.OutputPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected no output, stat err %v", statErr)
	}
	want := []State{StateProbing, StateSequencing, StateConcatenating, StateMuxing, StateBurning, StateFailed}
	if !equalStates(rec.states(), want) {
		t.Fatalf("unexpected transitions %v", rec.states())
	}
	last := rec.transitions[len(rec.transitions)-1]
	if last.From != StateBurning || last.Err == nil {
		t.Fatalf("unexpected failure transition %+v", last)
	}
}

func TestRunValidatesJob(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	_, err := f.r.Run(context.Background(), &Job{}, rec.observe)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !equalStates(rec.states(), []State{StateFailed}) {
		t.Fatalf("unexpected transitions %v", rec.states())
	}
}

func TestRunAssignsJobID(t *testing.T) {
	f := newFixture(t)
	job := newJob(f, f.clip("a.mp4", 40))
	job.ID = ""
	if _, err := f.r.Run(context.Background(), job, nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected generated job id")
	}
}

func TestStateStrings(t *testing.T) {
	if StateConcatenating.String() != "concatenating" || State(99).String() != "state(99)" {
		t.Fatal("unexpected state names")
	}
	if !StateDone.Terminal() || !StateFailed.Terminal() || StateBurning.Terminal() {
		t.Fatal("unexpected terminal flags")
	}
}
