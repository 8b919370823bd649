package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Paths contains directory and bind address configuration.
type Paths struct {
	ScratchDir string `toml:"scratch_dir"`
	UploadDir  string `toml:"upload_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Engine contains ffmpeg/ffprobe invocation and encoding settings.
type Engine struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	VideoCodec     string `toml:"video_codec"`
	AudioCodec     string `toml:"audio_codec"`
	Preset         string `toml:"preset"`
	CRF            int    `toml:"crf"`
	AudioBitrate   string `toml:"audio_bitrate"`
	PixelFormat    string `toml:"pixel_format"`
	FrameRate      int    `toml:"frame_rate"`
	ConcatStrategy string `toml:"concat_strategy"`
	StageTimeout   int    `toml:"stage_timeout"`
	MaxConcurrent  int    `toml:"max_concurrent"`
}

// Subtitles contains the burn-in style applied to every caption track.
type Subtitles struct {
	FontName      string `toml:"font_name"`
	FontSize      int    `toml:"font_size"`
	PrimaryColour string `toml:"primary_colour"`
	OutlineColour string `toml:"outline_colour"`
	BorderStyle   int    `toml:"border_style"`
	Outline       int    `toml:"outline"`
	Shadow        int    `toml:"shadow"`
	Alignment     int    `toml:"alignment"`
	MarginV       int    `toml:"margin_v"`
}

// Workflow contains configuration for daemon timing and worker counts.
type Workflow struct {
	Workers            int `toml:"workers"`
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// API contains HTTP upload surface settings.
type API struct {
	MaxUploadMiB    int      `toml:"max_upload_mib"`
	CORSOrigins     []string `toml:"cors_origins"`
	AllowedAudioExt []string `toml:"allowed_audio_ext"`
	AllowedVideoExt []string `toml:"allowed_video_ext"`
}

// Retention contains scheduled cleanup settings.
type Retention struct {
	CleanupSchedule    string  `toml:"cleanup_schedule"`
	ScratchMaxAgeHours int     `toml:"scratch_max_age_hours"`
	UploadMaxAgeHours  int     `toml:"upload_max_age_hours"`
	OutputMaxAgeHours  int     `toml:"output_max_age_hours"`
	MinFreeGiB         float64 `toml:"min_free_gib"`
}

// Publish contains optional S3-compatible upload settings for finished renders.
type Publish struct {
	Enabled   bool   `toml:"enabled"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	Prefix    string `toml:"prefix"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the parsed config.toml. Each section maps to one table.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Engine    Engine    `toml:"engine"`
	Subtitles Subtitles `toml:"subtitles"`
	Workflow  Workflow  `toml:"workflow"`
	API       API       `toml:"api"`
	Retention Retention `toml:"retention"`
	Publish   Publish   `toml:"publish"`
	Logging   Logging   `toml:"logging"`
}

// EnsureDirectories creates the directories the host owns. The render core
// never creates or removes them itself.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.UploadDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Runtime files live next to the logs.
func (c *Config) runtimeFile(name string) string {
	return filepath.Join(c.Paths.LogDir, name)
}

// QueueDBPath is the job status database.
func (c *Config) QueueDBPath() string { return c.runtimeFile("jobs.db") }

// SocketPath is the daemon control socket.
func (c *Config) SocketPath() string { return c.runtimeFile("montage.sock") }

// PIDPath is the daemon pid file.
func (c *Config) PIDPath() string { return c.runtimeFile("montage.pid") }

// StageTimeout returns the per-invocation engine timeout, or zero when disabled.
func (c *Config) StageTimeout() time.Duration {
	if c.Engine.StageTimeout <= 0 {
		return 0
	}
	return time.Duration(c.Engine.StageTimeout) * time.Second
}

// MaxUploadBytes returns the request body limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.API.MaxUploadMiB) << 20
}

