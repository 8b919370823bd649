package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/samber/lo"

	"montage/internal/config"
)

// Requirement names an external binary the render engine invokes.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is a Requirement after lookup on PATH. Version is filled by
// Inspect only.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Version     string
	Detail      string
}

// Requirements returns ffmpeg and ffprobe, honoring configured binaries.
func Requirements(cfg *config.Config) []Requirement {
	var engine config.Engine
	if cfg != nil {
		engine = cfg.Engine
	}
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     orDefault(engine.FFmpegBinary, "ffmpeg"),
			Description: "Concatenates clips, muxes audio and burns subtitles",
		},
		{
			Name:        "FFprobe",
			Command:     orDefault(engine.FFprobeBinary, "ffprobe"),
			Description: "Reads durations and stream layout",
		},
	}
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

// CheckBinaries resolves each requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	return lo.Map(requirements, func(req Requirement, _ int) Status {
		return lookup(req)
	})
}

func lookup(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Available = true
	status.Path = path
	return status
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	return lo.Filter(statuses, func(s Status, _ int) bool {
		return !s.Available && !s.Optional
	})
}
