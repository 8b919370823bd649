package main

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"
	"testing"

	"montage/internal/api"
	"montage/internal/queue"
	"montage/internal/testsupport"
)

func TestQueueCommandsThroughDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	completed := testsupport.NewJob(t, env.store, env.cfg)
	failed := testsupport.NewJob(t, env.store, env.cfg, "a.mp4", "b.mp4")
	pending := testsupport.NewJob(t, env.store, env.cfg)
	setStatus(t, env.store, completed, queue.StatusCompleted)
	failed.ErrorMessage = "encode failed"
	setStatus(t, env.store, failed, queue.StatusFailed)

	out, _, err := runCLI(t, []string{"queue", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, completed.OutputName())
	requireContains(t, out, failed.OutputName())
	requireContains(t, out, pending.OutputName())

	out, _, err = runCLI(t, []string{"queue", "list", "--status", "failed", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list --status: %v", err)
	}
	var listed api.JobListResponse
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Jobs) != 1 || listed.Jobs[0].ID != failed.ID || listed.Jobs[0].ClipCount != 2 {
		t.Fatalf("unexpected filtered list: %+v", listed.Jobs)
	}

	if _, _, err := runCLI(t, []string{"queue", "list", "--status", "bogus"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected unknown status to fail")
	}

	out, _, err = runCLI(t, []string{"queue", "show", strconv.FormatInt(failed.ID, 10)}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	requireContains(t, out, "encode failed")
	requireContains(t, out, "failed")

	out, _, err = runCLI(t, []string{"queue", "retry", strconv.FormatInt(failed.ID, 10), strconv.FormatInt(pending.ID, 10), "9999"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Job "+strconv.FormatInt(failed.ID, 10)+" moved to pending")
	requireContains(t, out, "is pending, not failed")
	requireContains(t, out, "Job 9999 not found")

	out, _, err = runCLI(t, []string{"queue", "clear", "--completed"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear --completed: %v", err)
	}
	requireContains(t, out, "Cleared 1 completed jobs")

	out, _, err = runCLI(t, []string{"queue", "remove", strconv.FormatInt(pending.ID, 10)}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	requireContains(t, out, "removed")

	jobs, err := env.store.List(context.Background())
	if err != nil {
		t.Fatalf("store.List: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != failed.ID || jobs[0].Status != queue.StatusPending {
		t.Fatalf("unexpected remaining jobs: %+v", jobs)
	}
}

func TestQueueCommandsRejectBadInput(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"queue", "show", "abc"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected invalid id to fail")
	}
	if _, _, err := runCLI(t, []string{"queue", "remove"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected remove without ids to fail")
	}
	if _, _, err := runCLI(t, []string{"queue", "clear", "--completed", "--failed"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected conflicting clear flags to fail")
	}
}

func TestQueueCommandsFallBackToStore(t *testing.T) {
	env := setupCLITestEnv(t)
	job := testsupport.NewJob(t, env.store, env.cfg)
	missingSocket := filepath.Join(t.TempDir(), "absent.sock")

	out, _, err := runCLI(t, []string{"queue", "list"}, missingSocket, env.configPath)
	if err != nil {
		t.Fatalf("queue list without daemon: %v", err)
	}
	requireContains(t, out, job.OutputName())

	out, _, err = runCLI(t, []string{"queue", "status"}, missingSocket, env.configPath)
	if err != nil {
		t.Fatalf("queue status without daemon: %v", err)
	}
	requireContains(t, out, "Pending")

	out, _, err = runCLI(t, []string{"queue", "health"}, missingSocket, env.configPath)
	if err != nil {
		t.Fatalf("queue health without daemon: %v", err)
	}
	requireContains(t, out, "Integrity check: yes")
	requireContains(t, out, "Total jobs: 1")
}

func TestParseJobIDs(t *testing.T) {
	ids, err := parseJobIDs([]string{"3", " 7 "})
	if err != nil || len(ids) != 2 || ids[0] != 3 || ids[1] != 7 {
		t.Fatalf("unexpected ids %v err %v", ids, err)
	}
	for _, bad := range []string{"0", "-1", "x"} {
		if _, err := parseJobIDs([]string{bad}); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
