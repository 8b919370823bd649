package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"montage/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "muxing", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"muxing", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrValidation, "upload", "", "bad", nil), "validation"},
		{services.Wrap(services.ErrExternalTool, "concat", "", "", nil), "external_tool"},
		{fmt.Errorf("stage: %w", context.DeadlineExceeded), "timeout"},
		{fmt.Errorf("clips: %w", services.ErrNoUsableMedia), "no_usable_media"},
		{errors.New("io"), "transient"},
	}
	for _, tc := range cases {
		if got := services.Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestWrapExposesStage(t *testing.T) {
	err := fmt.Errorf("job 4: %w", services.Wrap(services.ErrTimeout, "burning", "ffmpeg", "", context.DeadlineExceeded))
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *services.Error in chain, got %T", err)
	}
	if svcErr.Stage != "burning" || svcErr.Operation != "ffmpeg" {
		t.Fatalf("unexpected context: %+v", svcErr)
	}
	if got := svcErr.Error(); got != "timeout: burning: ffmpeg: context deadline exceeded" {
		t.Fatalf("unexpected message %q", got)
	}
}
