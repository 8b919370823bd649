package deps

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// Version runs `<binary> -version` and returns the first line of its output,
// which for ffmpeg and ffprobe carries the build version.
func Version(ctx context.Context, binary string) (string, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return "", fmt.Errorf("version: command not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "-version") //nolint:gosec
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s -version: %w", binary, err)
	}
	line, _, _ := strings.Cut(stdout.String(), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s -version: empty output", binary)
	}
	return line, nil
}

// Inspect checks every requirement and records the version of the available
// ones. Version failures are reported in Detail without marking the binary
// unavailable.
func Inspect(ctx context.Context, requirements []Requirement) []Status {
	statuses := CheckBinaries(requirements)
	for i := range statuses {
		if !statuses[i].Available {
			continue
		}
		version, err := Version(ctx, statuses[i].Path)
		if err != nil {
			statuses[i].Detail = err.Error()
			continue
		}
		statuses[i].Version = version
	}
	return statuses
}
