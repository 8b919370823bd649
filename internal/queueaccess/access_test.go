package queueaccess_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"montage/internal/api"
	"montage/internal/ipc"
	"montage/internal/queue"
	"montage/internal/queueaccess"
	"montage/internal/testsupport"
)

func TestOpenWithFallbackUsesStoreWhenDaemonOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dialed := false
	session, err := queueaccess.OpenWithFallback(cfg,
		func() (*ipc.Client, error) {
			dialed = true
			return nil, errors.New("connection refused")
		},
		func() (*queue.Store, error) { return queue.Open(cfg) },
	)
	if err != nil {
		t.Fatalf("OpenWithFallback: %v", err)
	}
	defer session.Close()

	if !dialed {
		t.Fatal("expected IPC to be tried first")
	}
	if session.Daemon() {
		t.Fatal("expected store-backed session")
	}

	ctx := context.Background()
	src := t.TempDir()
	req := api.LocalSubmission{
		AudioPath:    filepath.Join(src, "song.mp3"),
		SubtitlePath: filepath.Join(src, "lyrics.srt"),
		ClipPaths:    []string{filepath.Join(src, "a.mp4"), filepath.Join(src, "b.mp4")},
	}
	for _, p := range append([]string{req.AudioPath, req.SubtitlePath}, req.ClipPaths...) {
		testsupport.WriteFile(t, p, 4)
	}
	job, err := session.Access.Submit(ctx, req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.ClipCount != 2 || job.Status != string(queue.StatusPending) {
		t.Fatalf("unexpected job %#v", job)
	}

	jobs, err := session.Access.List(ctx, []string{"pending"})
	if err != nil || len(jobs) != 1 {
		t.Fatalf("List: %v %#v", err, jobs)
	}
	if _, err := session.Access.List(ctx, []string{"nope"}); err == nil {
		t.Fatal("expected unknown status to fail")
	}

	retry, err := session.Access.Retry(ctx, []int64{job.ID})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retry.UpdatedCount != 0 || retry.Jobs[0].Outcome != api.RetryJobNotFailed {
		t.Fatalf("pending job should not be retried: %#v", retry)
	}

	stats, err := session.Access.Stats(ctx)
	if err != nil || stats["pending"] != 1 || stats["failed"] != 0 {
		t.Fatalf("Stats: %v %v", err, stats)
	}

	if n, err := session.Access.Clear(ctx, api.ClearCompleted); err != nil || n != 0 {
		t.Fatalf("Clear completed: %d %v", n, err)
	}

	removed, err := session.Access.Remove(ctx, []int64{job.ID})
	if err != nil || removed.RemovedCount != 1 {
		t.Fatalf("Remove: %v %#v", err, removed)
	}
	if _, err := session.Access.Describe(ctx, job.ID); err == nil {
		t.Fatal("expected describe of removed job to fail")
	}
}

func TestOpenWithFallbackRequiresStoreOpener(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := queueaccess.OpenWithFallback(cfg, nil, nil); err == nil {
		t.Fatal("expected error without any backend")
	}
}
