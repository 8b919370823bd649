package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"montage/internal/testsupport"
)

func TestPointCurrentLog(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "montage-1.log")
	second := filepath.Join(dir, "montage-2.log")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, []byte(filepath.Base(p)), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	if err := pointCurrentLog(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := pointCurrentLog(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "montage.log"))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "montage-2.log" {
		t.Fatalf("pointer resolves to %q", data)
	}
	if err := pointCurrentLog("", second); err != nil {
		t.Fatalf("empty dir should be a no-op: %v", err)
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "montage.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid: %v", err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Fatalf("unexpected pid file contents %q", data)
	}
}

func TestRunReturnsWhenContextCanceled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Retention.CleanupSchedule = ""
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Run(ctx, cfg, Options{LogLevel: "error"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(cfg.PIDPath()); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, stat err=%v", err)
	}
	if _, err := os.Stat(cfg.SocketPath()); !os.IsNotExist(err) {
		t.Fatalf("expected socket removed, stat err=%v", err)
	}
	if _, err := os.Lstat(filepath.Join(cfg.Paths.LogDir, "montage.log")); err != nil {
		t.Fatalf("expected log pointer: %v", err)
	}
	if err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestTeardownRunsInReverse(t *testing.T) {
	var order []int
	var steps teardown
	for i := range 3 {
		steps.push(func() { order = append(order, i) })
	}
	steps.run()
	if len(order) != 3 || order[0] != 2 || order[2] != 0 {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestOptionsFallBackToConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if got := (Options{}).socket(cfg); got != cfg.SocketPath() {
		t.Fatalf("socket = %q", got)
	}
	if got := (Options{LogLevel: " debug "}).level(cfg); got != "debug" {
		t.Fatalf("level = %q", got)
	}
}
