package services

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrNoUsableMedia = errors.New("no usable media")
)

// Error tags a failure with one of the markers above plus where it happened.
// errors.Is matches both the marker and the cause.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Marker.Error())
	b.WriteString(": ")
	b.WriteString(e.detail())
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Cause}
}

func (e *Error) detail() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{e.Stage, e.Operation, e.Message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// Wrap tags err with marker and stage context. A nil marker means
// ErrTransient; a nil err yields an error carrying only the context.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Error{Marker: marker, Stage: stage, Operation: operation, Message: message, Cause: err}
}

// failureKinds is checked in order; the first match wins.
var failureKinds = []struct {
	markers []error
	kind    string
}{
	{[]error{context.DeadlineExceeded, ErrTimeout}, "timeout"},
	{[]error{context.Canceled}, "canceled"},
	{[]error{ErrNoUsableMedia}, "no_usable_media"},
	{[]error{ErrValidation}, "validation"},
	{[]error{ErrConfiguration}, "configuration"},
	{[]error{ErrNotFound}, "not_found"},
	{[]error{ErrExternalTool}, "external_tool"},
}

// Classify maps an error onto the short failure kind persisted with failed
// jobs. Unrecognized errors are "transient".
func Classify(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range failureKinds {
		for _, marker := range entry.markers {
			if errors.Is(err, marker) {
				return entry.kind
			}
		}
	}
	return "transient"
}
