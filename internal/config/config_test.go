package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"montage/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantScratch := filepath.Join(tempHome, ".local", "share", "montage", "scratch")
	if cfg.Paths.ScratchDir != wantScratch {
		t.Fatalf("unexpected scratch dir: got %q want %q", cfg.Paths.ScratchDir, wantScratch)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, ".local", "share", "montage", "outputs") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:8000" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Engine.ConcatStrategy != config.ConcatReencode {
		t.Fatalf("expected reencode concat strategy by default, got %q", cfg.Engine.ConcatStrategy)
	}
	if cfg.Engine.VideoCodec != "libx264" || cfg.Engine.AudioCodec != "aac" {
		t.Fatalf("unexpected canonical codecs: %q/%q", cfg.Engine.VideoCodec, cfg.Engine.AudioCodec)
	}
	if cfg.Subtitles.FontName != "Arial" || cfg.Subtitles.FontSize != 24 {
		t.Fatalf("unexpected subtitle defaults: %+v", cfg.Subtitles)
	}
	if cfg.Publish.Enabled {
		t.Fatal("expected publishing disabled by default")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.ScratchDir, cfg.Paths.UploadDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "montage.toml")

	type payload struct {
		Paths struct {
			ScratchDir string `toml:"scratch_dir"`
		} `toml:"paths"`
		Engine struct {
			ConcatStrategy string `toml:"concat_strategy"`
			StageTimeout   int    `toml:"stage_timeout"`
		} `toml:"engine"`
		Workflow struct {
			Workers           int `toml:"workers"`
			HeartbeatInterval int `toml:"heartbeat_interval"`
			HeartbeatTimeout  int `toml:"heartbeat_timeout"`
		} `toml:"workflow"`
		API struct {
			AllowedVideoExt []string `toml:"allowed_video_ext"`
		} `toml:"api"`
	}
	custom := payload{}
	custom.Paths.ScratchDir = filepath.Join(tempDir, "scratch")
	custom.Engine.ConcatStrategy = " AUTO "
	custom.Engine.StageTimeout = 90
	custom.Workflow.Workers = 4
	custom.Workflow.HeartbeatInterval = 20
	custom.Workflow.HeartbeatTimeout = 200
	custom.API.AllowedVideoExt = []string{"MP4", ".mov", "mp4"}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.ScratchDir != filepath.Join(tempDir, "scratch") {
		t.Fatalf("expected scratch dir from file, got %q", cfg.Paths.ScratchDir)
	}
	if cfg.Engine.ConcatStrategy != config.ConcatAuto {
		t.Fatalf("expected normalized concat strategy, got %q", cfg.Engine.ConcatStrategy)
	}
	if cfg.StageTimeout().Seconds() != 90 {
		t.Fatalf("expected 90s stage timeout, got %s", cfg.StageTimeout())
	}
	if cfg.Workflow.Workers != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.Workflow.Workers)
	}
	if got := strings.Join(cfg.API.AllowedVideoExt, ","); got != ".mp4,.mov" {
		t.Fatalf("unexpected normalized extensions: %q", got)
	}
}

func TestEnvVarFallbacksForSecrets(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MONTAGE_API_TOKEN", "env-token")
	t.Setenv("MONTAGE_S3_ACCESS_KEY", "env-access")
	t.Setenv("MONTAGE_S3_SECRET_KEY", "env-secret")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.APIToken != "env-token" {
		t.Errorf("expected api token from env, got %q", cfg.Paths.APIToken)
	}
	if cfg.Publish.AccessKey != "env-access" {
		t.Errorf("expected access key from env, got %q", cfg.Publish.AccessKey)
	}
	if cfg.Publish.SecretKey != "env-secret" {
		t.Errorf("expected secret key from env, got %q", cfg.Publish.SecretKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if string(contents) != config.SampleConfig() {
		t.Fatal("written sample differs from the embedded one")
	}

	t.Setenv("HOME", t.TempDir())
	cfg, _, exists, err := config.Load(path)
	if err != nil || !exists {
		t.Fatalf("Load sample: exists=%v err=%v", exists, err)
	}
	if !strings.Contains(cfg.Paths.ScratchDir, "montage") || cfg.Engine.ConcatStrategy != config.ConcatReencode {
		t.Fatalf("unexpected sample values: %+v %+v", cfg.Paths, cfg.Engine)
	}
}

func TestLoadFindsProjectFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	t.Chdir(project)
	if err := os.WriteFile("montage.toml", []byte("[workflow]\nworkers = 3\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || filepath.Base(resolved) != "montage.toml" || cfg.Workflow.Workers != 3 {
		t.Fatalf("project file not used: resolved=%q exists=%v workers=%d", resolved, exists, cfg.Workflow.Workers)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cases := map[string]string{
		"":            "",
		"~":           home,
		"~/renders":   filepath.Join(home, "renders"),
		"/tmp/a/../b": "/tmp/b",
	}
	for in, want := range cases {
		got, err := config.ExpandPath(in)
		if err != nil || got != want {
			t.Fatalf("ExpandPath(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	if cfg := config.Default(); cfg.Validate() != nil {
		t.Fatalf("expected defaults to validate, got %v", cfg.Validate())
	}

	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown concat strategy", func(c *config.Config) { c.Engine.ConcatStrategy = "fast" }},
		{"zero workers", func(c *config.Config) { c.Workflow.Workers = 0 }},
		{"timeout not above interval", func(c *config.Config) { c.Workflow.HeartbeatTimeout = c.Workflow.HeartbeatInterval }},
		{"font name with comma", func(c *config.Config) { c.Subtitles.FontName = "Comic, Sans" }},
		{"publish without credentials", func(c *config.Config) {
			c.Publish.Enabled = true
			c.Publish.Bucket = "renders"
			c.Publish.Region = "us-east-1"
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
