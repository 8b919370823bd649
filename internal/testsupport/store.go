package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"montage/internal/config"
	"montage/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob enqueues a pending job whose inputs live in a fresh session
// directory under the configured upload dir. The files are not created.
func NewJob(t testing.TB, store *queue.Store, cfg *config.Config, clips ...string) *queue.Job {
	t.Helper()

	if len(clips) == 0 {
		clips = []string{"clip.mp4"}
	}
	sessionID := uuid.NewString()
	session := filepath.Join(cfg.Paths.UploadDir, sessionID)
	clipPaths := make([]string, 0, len(clips))
	for _, c := range clips {
		clipPaths = append(clipPaths, filepath.Join(session, c))
	}
	job, err := store.NewJob(context.Background(), queue.NewJobParams{
		SessionID:    sessionID,
		AudioPath:    filepath.Join(session, "song.mp3"),
		SubtitlePath: filepath.Join(session, "lyrics.srt"),
		ClipPaths:    clipPaths,
		OutputPath:   filepath.Join(cfg.Paths.OutputDir, "output_"+sessionID+".mp4"),
	})
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return job
}
