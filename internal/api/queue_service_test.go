package api_test

import (
	"context"
	"errors"
	"testing"

	"montage/internal/api"
	"montage/internal/queue"
	"montage/internal/services"
	"montage/internal/testsupport"
)

func TestParseStatusFilter(t *testing.T) {
	statuses, err := api.ParseStatusFilter([]string{"pending, failed", "", " completed "})
	if err != nil {
		t.Fatalf("ParseStatusFilter: %v", err)
	}
	want := []queue.Status{queue.StatusPending, queue.StatusFailed, queue.StatusCompleted}
	if len(statuses) != len(want) {
		t.Fatalf("got %v, want %v", statuses, want)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("got %v, want %v", statuses, want)
		}
	}

	if _, err := api.ParseStatusFilter([]string{"pending,ripping"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQueueServiceHidesDiagnosticsByDefault(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, cfg)
	job.Status = queue.StatusFailed
	job.ErrorMessage = "burn failed"
	job.ErrorDetail = "ffmpeg stderr tail"
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	testsupport.NewJob(t, store, cfg)

	public := api.NewQueueService(store, api.ConvertOptions{})
	jobs, err := public.List(ctx, []string{"failed"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ErrorMessage != "burn failed" || jobs[0].ErrorDetail != "" {
		t.Fatalf("unexpected public view: %+v", jobs)
	}

	trusted := api.NewQueueService(store, api.ConvertOptions{IncludeDiagnostics: true})
	described, err := trusted.Describe(ctx, job.ID)
	if err != nil || described == nil {
		t.Fatalf("Describe: %v %v", described, err)
	}
	if described.ErrorDetail != "ffmpeg stderr tail" {
		t.Fatalf("expected diagnostics for trusted view, got %q", described.ErrorDetail)
	}

	missing, err := trusted.Describe(ctx, 9999)
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing job, got %v %v", missing, err)
	}

	stats, err := public.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["failed"] != 1 || stats["pending"] != 1 || stats["completed"] != 0 {
		t.Fatalf("unexpected stats: %v", stats)
	}
	if _, ok := stats["processing"]; !ok {
		t.Fatal("expected zero-filled processing count")
	}

	empty, err := public.List(ctx, []string{"completed"})
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %v %v", empty, err)
	}
}
