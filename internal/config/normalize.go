package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEngine()
	c.normalizeSubtitles()
	c.normalizeAPI()
	c.normalizePublish()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("MONTAGE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeEngine() {
	c.Engine.FFmpegBinary = strings.TrimSpace(c.Engine.FFmpegBinary)
	if c.Engine.FFmpegBinary == "" {
		c.Engine.FFmpegBinary = defaultFFmpegBinary
	}
	c.Engine.FFprobeBinary = strings.TrimSpace(c.Engine.FFprobeBinary)
	if c.Engine.FFprobeBinary == "" {
		c.Engine.FFprobeBinary = defaultFFprobeBinary
	}
	c.Engine.VideoCodec = strings.TrimSpace(c.Engine.VideoCodec)
	if c.Engine.VideoCodec == "" {
		c.Engine.VideoCodec = defaultVideoCodec
	}
	c.Engine.AudioCodec = strings.TrimSpace(c.Engine.AudioCodec)
	if c.Engine.AudioCodec == "" {
		c.Engine.AudioCodec = defaultAudioCodec
	}
	c.Engine.Preset = strings.TrimSpace(c.Engine.Preset)
	c.Engine.AudioBitrate = strings.TrimSpace(c.Engine.AudioBitrate)
	c.Engine.PixelFormat = strings.TrimSpace(c.Engine.PixelFormat)
	if c.Engine.PixelFormat == "" {
		c.Engine.PixelFormat = defaultPixelFormat
	}
	c.Engine.ConcatStrategy = strings.ToLower(strings.TrimSpace(c.Engine.ConcatStrategy))
	if c.Engine.ConcatStrategy == "" {
		c.Engine.ConcatStrategy = ConcatReencode
	}
	if c.Engine.MaxConcurrent < 0 {
		c.Engine.MaxConcurrent = 0
	}
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.FontName = strings.TrimSpace(c.Subtitles.FontName)
	if c.Subtitles.FontName == "" {
		c.Subtitles.FontName = defaultFontName
	}
	if c.Subtitles.FontSize <= 0 {
		c.Subtitles.FontSize = defaultFontSize
	}
	c.Subtitles.PrimaryColour = strings.TrimSpace(c.Subtitles.PrimaryColour)
	c.Subtitles.OutlineColour = strings.TrimSpace(c.Subtitles.OutlineColour)
}

func (c *Config) normalizeAPI() {
	c.API.CORSOrigins = normalizeList(c.API.CORSOrigins, false)
	c.API.AllowedAudioExt = normalizeExtensions(c.API.AllowedAudioExt, defaultAudioExt)
	c.API.AllowedVideoExt = normalizeExtensions(c.API.AllowedVideoExt, defaultVideoExt)
}

func (c *Config) normalizePublish() {
	c.Publish.Bucket = strings.TrimSpace(c.Publish.Bucket)
	c.Publish.Region = strings.TrimSpace(c.Publish.Region)
	c.Publish.Endpoint = strings.TrimRight(strings.TrimSpace(c.Publish.Endpoint), "/")
	c.Publish.Prefix = strings.Trim(strings.TrimSpace(c.Publish.Prefix), "/")
	c.Publish.AccessKey = strings.TrimSpace(c.Publish.AccessKey)
	if c.Publish.AccessKey == "" {
		if value, ok := os.LookupEnv("MONTAGE_S3_ACCESS_KEY"); ok {
			c.Publish.AccessKey = strings.TrimSpace(value)
		}
	}
	c.Publish.SecretKey = strings.TrimSpace(c.Publish.SecretKey)
	if c.Publish.SecretKey == "" {
		if value, ok := os.LookupEnv("MONTAGE_S3_SECRET_KEY"); ok {
			c.Publish.SecretKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeList(values []string, lower bool) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.TrimSpace(value)
		if lower {
			normalized = strings.ToLower(normalized)
		}
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func normalizeExtensions(values, fallback []string) []string {
	exts := normalizeList(values, true)
	for i, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			exts[i] = "." + ext
		}
	}
	if len(exts) == 0 {
		return append([]string(nil), fallback...)
	}
	return exts
}
