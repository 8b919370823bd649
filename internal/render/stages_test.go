package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"montage/internal/config"
)

func buildPlaylist(t *testing.T, f fixture, durations ...float64) Playlist {
	t.Helper()
	var clips []string
	for i, d := range durations {
		clips = append(clips, f.clip(string(rune('a'+i))+" clip's.mp4", d))
	}
	total := 0.0
	for _, d := range durations {
		total += d
	}
	playlist, err := f.r.BuildPlaylist(context.Background(), clips, total)
	if err != nil {
		t.Fatalf("BuildPlaylist returned error: %v", err)
	}
	return playlist
}

func TestConcatenateWritesAndRemovesManifest(t *testing.T) {
	f := newFixture(t)
	playlist := buildPlaylist(t, f, 2, 3)
	job := &Job{ID: "job1"}

	handle, err := f.r.Concatenate(context.Background(), job, playlist)
	if err != nil {
		t.Fatalf("Concatenate returned error: %v", err)
	}
	manifests := f.fake.Manifests()
	if len(manifests) != 1 {
		t.Fatalf("expected one manifest, got %d", len(manifests))
	}
	wantLine := "file '" + filepath.Join(f.dir, `a clip'\''s.mp4`) + "'"
	if !strings.Contains(manifests[0], wantLine) {
		t.Fatalf("manifest %q missing %q", manifests[0], wantLine)
	}
	entries := f.scratchEntries(t)
	if len(entries) != 1 || !strings.HasPrefix(entries[0], "job1-concat-") || !strings.HasSuffix(entries[0], ".mp4") {
		t.Fatalf("expected only the concat intermediate in scratch, got %v", entries)
	}
	if handle.Path != job.Intermediates()[0] {
		t.Fatalf("expected handle to match recorded intermediate")
	}
}

func TestConcatenateStrategies(t *testing.T) {
	cases := []struct {
		strategy string
		wantCopy bool
	}{
		{config.ConcatReencode, false},
		{config.ConcatCopy, true},
		{config.ConcatAuto, true},
	}
	for _, tc := range cases {
		t.Run(tc.strategy, func(t *testing.T) {
			f := newFixture(t, func(s *Settings) { s.ConcatStrategy = tc.strategy })
			playlist := buildPlaylist(t, f, 2, 3)
			if _, err := f.r.Concatenate(context.Background(), &Job{ID: "j"}, playlist); err != nil {
				t.Fatalf("Concatenate returned error: %v", err)
			}
			args := f.fake.Specs()[0].Args
			isCopy := slices.Equal(args, []string{"-c", "copy"})
			if isCopy != tc.wantCopy {
				t.Fatalf("strategy %s: unexpected args %v", tc.strategy, args)
			}
			if !tc.wantCopy && !slices.Contains(args, "libx264") {
				t.Fatalf("expected re-encode args, got %v", args)
			}
		})
	}
}

func TestConcatenateAutoFallsBackToReencode(t *testing.T) {
	f := newFixture(t, func(s *Settings) { s.ConcatStrategy = config.ConcatAuto })
	a := f.clip("a.mp4", 2)
	b := filepath.Join(f.dir, "b.mp4")
	info, _ := f.fake.Probe(context.Background(), a)
	info.Path = b
	info.FrameRate = 24
	f.fake.SetMedia(info)
	playlist, err := f.r.BuildPlaylist(context.Background(), []string{a, b}, 4)
	if err != nil {
		t.Fatalf("BuildPlaylist returned error: %v", err)
	}
	if _, err := f.r.Concatenate(context.Background(), &Job{ID: "j"}, playlist); err != nil {
		t.Fatalf("Concatenate returned error: %v", err)
	}
	args := strings.Join(f.fake.Specs()[0].Args, " ")
	for _, want := range []string{"-c:v libx264", "fps=30", "scale=1280:720", "-c:a aac"} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected %q in %q", want, args)
		}
	}
}

func TestConcatenateDropsAudioWhenAClipHasNone(t *testing.T) {
	f := newFixture(t)
	a := f.clip("a.mp4", 2)
	silent := filepath.Join(f.dir, "silent.mp4")
	info, _ := f.fake.Probe(context.Background(), a)
	info.Path = silent
	info.HasAudio = false
	info.AudioCodec = ""
	f.fake.SetMedia(info)
	playlist, err := f.r.BuildPlaylist(context.Background(), []string{a, silent}, 4)
	if err != nil {
		t.Fatalf("BuildPlaylist returned error: %v", err)
	}
	if _, err := f.r.Concatenate(context.Background(), &Job{ID: "j"}, playlist); err != nil {
		t.Fatalf("Concatenate returned error: %v", err)
	}
	if !slices.Contains(f.fake.Specs()[0].Args, "-an") {
		t.Fatalf("expected -an, got %v", f.fake.Specs()[0].Args)
	}
}

func TestConcatenateFailureRemovesPartial(t *testing.T) {
	f := newFixture(t)
	f.fake.PartialOnFailure = true
	f.fake.FailRun("concat", "Unsafe file name")
	playlist := buildPlaylist(t, f, 2)

	_, err := f.r.Concatenate(context.Background(), &Job{ID: "j"}, playlist)
	var concatErr *ConcatenationError
	if !errors.As(err, &concatErr) {
		t.Fatalf("expected ConcatenationError, got %v", err)
	}
	if concatErr.Diagnostics() != "Unsafe file name" {
		t.Fatalf("unexpected diagnostics %q", concatErr.Diagnostics())
	}
	if Diagnostics(err) != "Unsafe file name" {
		t.Fatalf("package Diagnostics mismatch: %q", Diagnostics(err))
	}
	if entries := f.scratchEntries(t); len(entries) != 0 {
		t.Fatalf("expected empty scratch, got %v", entries)
	}
}

func TestAttachAudioArgs(t *testing.T) {
	f := newFixture(t)
	video := NewMediaHandle(f.fake, f.clip("joined.mp4", 31))
	audio := NewMediaHandle(f.fake, f.clip("song.mp3", 30))

	muxed, err := f.r.AttachAudio(context.Background(), &Job{ID: "j"}, video, audio, 30)
	if err != nil {
		t.Fatalf("AttachAudio returned error: %v", err)
	}
	spec := f.fake.Specs()[0]
	if len(spec.Inputs) != 2 || spec.Inputs[0].Path != video.Path || spec.Inputs[1].Path != audio.Path {
		t.Fatalf("unexpected inputs %+v", spec.Inputs)
	}
	args := strings.Join(spec.Args, " ")
	for _, want := range []string{"-map 0:v:0 -map 1:a:0", "-c:v libx264", "-c:a aac", "-b:a 192k", "-t 30.000"} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected %q in %q", want, args)
		}
	}
	if !strings.Contains(filepath.Base(muxed.Path), "j-mux-") {
		t.Fatalf("unexpected mux path %s", muxed.Path)
	}
}

func TestAttachAudioFailure(t *testing.T) {
	f := newFixture(t)
	f.fake.PartialOnFailure = true
	f.fake.FailRun("mux", "Stream map '1:a:0' matches no streams")
	video := NewMediaHandle(f.fake, f.clip("joined.mp4", 31))
	audio := NewMediaHandle(f.fake, f.clip("song.mp3", 30))

	_, err := f.r.AttachAudio(context.Background(), &Job{ID: "j"}, video, audio, 30)
	var muxErr *MuxError
	if !errors.As(err, &muxErr) {
		t.Fatalf("expected MuxError, got %v", err)
	}
	if !strings.Contains(muxErr.Diagnostics(), "matches no streams") {
		t.Fatalf("unexpected diagnostics %q", muxErr.Diagnostics())
	}
	if entries := f.scratchEntries(t); len(entries) != 0 {
		t.Fatalf("expected partial mux output removed, got %v", entries)
	}
}

func TestBurnSubtitlesRejectsQuoteBeforeEngine(t *testing.T) {
	f := newFixture(t)
	video := NewMediaHandle(f.fake, f.clip("muxed.mp4", 30))

	_, err := f.r.BurnSubtitles(context.Background(), &Job{ID: "j"}, video, "/subs/it's.srt", filepath.Join(f.dir, "out.mp4"))
	var pathErr *UnsupportedPathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected UnsupportedPathError, got %v", err)
	}
	if len(f.fake.Specs()) != 0 {
		t.Fatal("expected no engine run")
	}
}

func TestBurnSubtitlesWritesTarget(t *testing.T) {
	f := newFixture(t)
	video := NewMediaHandle(f.fake, f.clip("muxed.mp4", 30))
	output := filepath.Join(f.dir, "out.mp4")

	final, err := f.r.BurnSubtitles(context.Background(), &Job{ID: "j"}, video, "/subs/lyrics.srt", output)
	if err != nil {
		t.Fatalf("BurnSubtitles returned error: %v", err)
	}
	if final.Path != output {
		t.Fatalf("expected output %s, got %s", output, final.Path)
	}
	spec := f.fake.Specs()[0]
	if spec.Output != output || !strings.HasPrefix(spec.Args[1], "subtitles=filename='/subs/lyrics.srt':force_style='FontName=Arial") {
		t.Fatalf("unexpected burn spec %+v", spec)
	}
}

func TestBurnSubtitlesFailureKeepsPreexistingTarget(t *testing.T) {
	f := newFixture(t)
	f.fake.PartialOnFailure = true
	f.fake.FailRun("burn", "Unable to open subtitles")
	video := NewMediaHandle(f.fake, f.clip("muxed.mp4", 30))

	fresh := filepath.Join(f.dir, "fresh.mp4")
	_, err := f.r.BurnSubtitles(context.Background(), &Job{ID: "j"}, video, "/subs/a.srt", fresh)
	var subErr *SubtitleError
	if !errors.As(err, &subErr) {
		t.Fatalf("expected SubtitleError, got %v", err)
	}
	if _, statErr := os.Stat(fresh); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected partial target removed, stat err %v", statErr)
	}

	existing := filepath.Join(f.dir, "existing.mp4")
	if err := os.WriteFile(existing, []byte("keep"), 0o644); err != nil {
		t.Fatalf("write existing: %v", err)
	}
	if _, err := f.r.BurnSubtitles(context.Background(), &Job{ID: "j"}, video, "/subs/a.srt", existing); err == nil {
		t.Fatal("expected burn failure")
	}
	if _, statErr := os.Stat(existing); statErr != nil {
		t.Fatalf("expected preexisting target kept: %v", statErr)
	}
}
