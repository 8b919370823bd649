package api_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"montage/internal/api"
	"montage/internal/services"
	"montage/internal/testsupport"
)

func TestSubmitLocalCopiesInputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	src := t.TempDir()
	audio := filepath.Join(src, "song.mp3")
	subs := filepath.Join(src, "lyrics.srt")
	clip := filepath.Join(src, "beach.mp4")
	for _, p := range []string{audio, subs, clip} {
		testsupport.WriteFile(t, p, 4)
	}

	job, err := api.SubmitLocal(context.Background(), cfg, store, api.LocalSubmission{
		AudioPath:    audio,
		SubtitlePath: subs,
		ClipPaths:    []string{clip},
	})
	if err != nil {
		t.Fatalf("SubmitLocal: %v", err)
	}
	if filepath.Dir(filepath.Dir(job.AudioPath)) != cfg.Paths.UploadDir {
		t.Fatalf("expected audio copied into an upload session, got %s", job.AudioPath)
	}
	if len(job.ClipPaths) != 1 {
		t.Fatalf("expected one clip, got %v", job.ClipPaths)
	}
	if _, err := os.Stat(audio); err != nil {
		t.Fatalf("source audio should be left in place: %v", err)
	}
}

func TestSubmitLocalDiscardsOnMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := api.SubmitLocal(context.Background(), cfg, store, api.LocalSubmission{
		AudioPath: filepath.Join(t.TempDir(), "missing.mp3"),
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	entries, _ := os.ReadDir(cfg.Paths.UploadDir)
	if len(entries) != 0 {
		t.Fatalf("expected session removed, found %d entries", len(entries))
	}
}
