package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoDuration reports that the probed file carries no usable duration.
var ErrNoDuration = errors.New("no duration reported")

const tailLines = 20

// Error describes a failed engine subprocess.
type Error struct {
	Label    string
	Argv     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	label := e.Label
	if label == "" {
		label = "engine"
	}
	fmt.Fprintf(&b, "%s failed", label)
	if e.ExitCode > 0 {
		fmt.Fprintf(&b, " (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if tail := e.Tail(); tail != "" {
		b.WriteString(": ")
		b.WriteString(tail)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Tail returns the last lines of stderr for compact log output.
func (e *Error) Tail() string {
	trimmed := strings.TrimSpace(e.Stderr)
	if trimmed == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) > tailLines {
		lines = lines[len(lines)-tailLines:]
	}
	return strings.Join(lines, "\n")
}

// Diagnostics extracts the captured stderr from err, if it wraps an *Error.
func Diagnostics(err error) string {
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr.Stderr
	}
	return ""
}
