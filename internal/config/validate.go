package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		return errors.New("paths.scratch_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateEngine() error {
	switch c.Engine.ConcatStrategy {
	case ConcatReencode, ConcatCopy, ConcatAuto:
	default:
		return fmt.Errorf("engine.concat_strategy must be one of %q, %q, %q (got %q)",
			ConcatReencode, ConcatCopy, ConcatAuto, c.Engine.ConcatStrategy)
	}
	if c.Engine.CRF < 0 || c.Engine.CRF > 51 {
		return errors.New("engine.crf must be between 0 and 51")
	}
	if c.Engine.FrameRate < 0 {
		return errors.New("engine.frame_rate must be >= 0")
	}
	if c.Engine.StageTimeout < 0 {
		return errors.New("engine.stage_timeout must be >= 0 (seconds, 0 disables)")
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if c.Subtitles.BorderStyle != 1 && c.Subtitles.BorderStyle != 3 {
		return errors.New("subtitles.border_style must be 1 (outline) or 3 (opaque box)")
	}
	if c.Subtitles.Alignment < 1 || c.Subtitles.Alignment > 9 {
		return errors.New("subtitles.alignment must be between 1 and 9")
	}
	for key, value := range map[string]string{
		"subtitles.font_name":      c.Subtitles.FontName,
		"subtitles.primary_colour": c.Subtitles.PrimaryColour,
		"subtitles.outline_colour": c.Subtitles.OutlineColour,
	} {
		if strings.ContainsAny(value, ",:'=") {
			return fmt.Errorf("%s must not contain ',', ':', '=' or quotes", key)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.workers":              c.Workflow.Workers,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"api.max_upload_mib":            c.API.MaxUploadMiB,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateRetention() error {
	if c.Retention.ScratchMaxAgeHours < 0 || c.Retention.UploadMaxAgeHours < 0 || c.Retention.OutputMaxAgeHours < 0 {
		return errors.New("retention max ages must be >= 0 (hours, 0 disables)")
	}
	if c.Retention.MinFreeGiB < 0 {
		return errors.New("retention.min_free_gib must be >= 0")
	}
	return nil
}

func (c *Config) validatePublish() error {
	if !c.Publish.Enabled {
		return nil
	}
	if c.Publish.Bucket == "" {
		return errors.New("publish.bucket must be set when publish.enabled is true")
	}
	if c.Publish.Region == "" {
		return errors.New("publish.region must be set when publish.enabled is true")
	}
	if c.Publish.AccessKey == "" || c.Publish.SecretKey == "" {
		return errors.New("publish.access_key and publish.secret_key must be set when publish.enabled is true (or set MONTAGE_S3_ACCESS_KEY / MONTAGE_S3_SECRET_KEY)")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
