package render

import (
	"errors"
	"fmt"

	"montage/internal/engine"
	"montage/internal/services"
)

// Diagnoser is implemented by errors that carry engine stderr.
type Diagnoser interface {
	Diagnostics() string
}

// Diagnostics returns the engine output attached to err, if any.
func Diagnostics(err error) string {
	var d Diagnoser
	if errors.As(err, &d) {
		return d.Diagnostics()
	}
	return engine.Diagnostics(err)
}

// ProbeError reports an unreadable file, an invalid container or a missing
// duration.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() []error { return []error{services.ErrExternalTool, e.Err} }

func (e *ProbeError) Diagnostics() string { return engine.Diagnostics(e.Err) }

// NoUsableMediaError reports that no clip survived probing.
type NoUsableMediaError struct {
	Candidates int
	Skipped    int
	Reason     string
}

func (e *NoUsableMediaError) Error() string {
	return fmt.Sprintf("no usable clips (%d candidates, %d skipped): %s", e.Candidates, e.Skipped, e.Reason)
}

func (e *NoUsableMediaError) Unwrap() error { return services.ErrNoUsableMedia }

// ConcatenationError reports a failed join of the playlist.
type ConcatenationError struct {
	Output string
	Err    error
}

func (e *ConcatenationError) Error() string {
	return fmt.Sprintf("concatenate into %s: %v", e.Output, e.Err)
}

func (e *ConcatenationError) Unwrap() []error { return []error{services.ErrExternalTool, e.Err} }

func (e *ConcatenationError) Diagnostics() string { return engine.Diagnostics(e.Err) }

// MuxError reports a failed audio replacement.
type MuxError struct {
	Output string
	Err    error
}

func (e *MuxError) Error() string {
	return fmt.Sprintf("attach audio into %s: %v", e.Output, e.Err)
}

func (e *MuxError) Unwrap() []error { return []error{services.ErrExternalTool, e.Err} }

func (e *MuxError) Diagnostics() string { return engine.Diagnostics(e.Err) }

// SubtitleError reports a failed subtitle burn.
type SubtitleError struct {
	Output string
	Err    error
}

func (e *SubtitleError) Error() string {
	return fmt.Sprintf("burn subtitles into %s: %v", e.Output, e.Err)
}

func (e *SubtitleError) Unwrap() []error { return []error{services.ErrExternalTool, e.Err} }

func (e *SubtitleError) Diagnostics() string { return engine.Diagnostics(e.Err) }

// UnsupportedPathError reports a path that cannot be embedded in a filter
// expression.
type UnsupportedPathError struct {
	Path string
	Char rune
}

func (e *UnsupportedPathError) Error() string {
	return fmt.Sprintf("subtitle path %q contains unsupported character %q", e.Path, e.Char)
}

func (e *UnsupportedPathError) Unwrap() error { return services.ErrValidation }
