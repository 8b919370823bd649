package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"montage/internal/config"
	"montage/internal/services"
	"montage/internal/testsupport"
)

type fixture struct {
	r       *Renderer
	fake    *testsupport.FakeEngine
	scratch string
	dir     string
}

func newFixture(t *testing.T, mutate ...func(*Settings)) fixture {
	t.Helper()
	cfg := config.Default()
	settings := SettingsFromConfig(&cfg)
	for _, m := range mutate {
		m(&settings)
	}
	scratch := t.TempDir()
	fake := testsupport.NewFakeEngine()
	r, err := New(fake, scratch, settings, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return fixture{r: r, fake: fake, scratch: scratch, dir: t.TempDir()}
}

func (f fixture) clip(name string, seconds float64) string {
	path := filepath.Join(f.dir, name)
	f.fake.SetDuration(path, seconds)
	return path
}

func (f fixture) scratchEntries(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.scratch)
	if err != nil {
		t.Fatalf("read scratch: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestNewRequiresExistingScratchDir(t *testing.T) {
	fake := testsupport.NewFakeEngine()
	_, err := New(fake, filepath.Join(t.TempDir(), "missing"), Settings{}, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := New(nil, t.TempDir(), Settings{}, nil); err == nil {
		t.Fatal("expected error for nil engine")
	}
}

func TestProbeReturnsReportedDuration(t *testing.T) {
	f := newFixture(t)
	path := f.clip("a.mp4", 12.5)

	for i := 0; i < 2; i++ {
		d, err := f.r.Probe(context.Background(), path)
		if err != nil {
			t.Fatalf("Probe returned error: %v", err)
		}
		if d != 12.5 {
			t.Fatalf("expected 12.5, got %v", d)
		}
	}

	zero := f.clip("zero.mp4", 0)
	if d, err := f.r.Probe(context.Background(), zero); err != nil || d != 0 {
		t.Fatalf("expected zero duration without error, got %v %v", d, err)
	}
}

func TestProbeFailure(t *testing.T) {
	f := newFixture(t)
	_, err := f.r.Probe(context.Background(), filepath.Join(f.dir, "missing.mp4"))
	var probeErr *ProbeError
	if !errors.As(err, &probeErr) {
		t.Fatalf("expected ProbeError, got %v", err)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool marker, got %v", err)
	}
	if !strings.Contains(probeErr.Diagnostics(), "No such file") {
		t.Fatalf("expected diagnostics, got %q", probeErr.Diagnostics())
	}
}

func TestMediaHandleCachesInfo(t *testing.T) {
	f := newFixture(t)
	path := f.clip("a.mp4", 3)
	h := NewMediaHandle(f.fake, path)
	for i := 0; i < 3; i++ {
		if d, err := h.Duration(context.Background()); err != nil || d != 3 {
			t.Fatalf("unexpected duration %v %v", d, err)
		}
	}
	if got := len(f.fake.Probes()); got != 1 {
		t.Fatalf("expected one probe, got %d", got)
	}
}

func TestSubtitleStyleForceStyle(t *testing.T) {
	cfg := config.Default()
	got := StyleFromConfig(cfg.Subtitles).ForceStyle()
	want := "FontName=Arial,FontSize=24,OutlineColour=&H80000000,BorderStyle=3,Outline=1,Shadow=1,Alignment=2,MarginV=20"
	if got != want {
		t.Fatalf("ForceStyle() = %q, want %q", got, want)
	}

	custom := SubtitleStyle{FontName: "DejaVu Sans", FontSize: 30, PrimaryColour: "&H00FFFFFF"}
	if got := custom.ForceStyle(); got != "FontName=DejaVu Sans,FontSize=30,PrimaryColour=&H00FFFFFF,Outline=0,Shadow=0" {
		t.Fatalf("unexpected custom style: %q", got)
	}
}
