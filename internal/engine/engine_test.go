package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"montage/internal/engine"
	"montage/internal/testsupport"
)

const probeJSON = `cat <<'JSON'
{"streams":[{"codec_type":"video","codec_name":"h264","width":640,"height":360,"pix_fmt":"yuv420p","r_frame_rate":"25/1"},
{"codec_type":"audio","codec_name":"aac"}],"format":{"duration":"8.25","format_name":"mov,mp4"}}
JSON
`

const writeLastArg = `for last; do :; done
echo rendered > "$last"
`

func TestSpecArgv(t *testing.T) {
	spec := engine.Spec{
		Label: "concat",
		Inputs: []engine.Input{
			{Path: "/tmp/list.txt", Options: []string{"-f", "concat", "-safe", "0"}},
		},
		Args:   []string{"-c:v", "libx264"},
		Output: "/tmp/out.mp4",
	}
	got := strings.Join(spec.Argv(), " ")
	want := "-hide_banner -nostdin -y -f concat -safe 0 -i /tmp/list.txt -c:v libx264 /tmp/out.mp4"
	if got != want {
		t.Fatalf("Argv() = %q, want %q", got, want)
	}
}

func TestFFmpegProbe(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEngineScripts("", probeJSON))
	eng := engine.NewFFmpeg(cfg, nil)

	info, err := eng.Probe(context.Background(), "/media/clip.mp4")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if info.Duration != 8.25 || info.VideoCodec != "h264" || info.FrameRate != 25 || !info.HasAudio {
		t.Fatalf("unexpected media info: %+v", info)
	}
	if info.Path != "/media/clip.mp4" || !info.HasVideo() {
		t.Fatalf("unexpected media path or video flag: %+v", info)
	}
}

func TestFFmpegProbeMissingDuration(t *testing.T) {
	script := `echo '{"streams":[],"format":{}}'` + "\n"
	cfg := testsupport.NewConfig(t, testsupport.WithEngineScripts("", script))
	eng := engine.NewFFmpeg(cfg, nil)

	_, err := eng.Probe(context.Background(), "/media/empty.mp4")
	if !errors.Is(err, engine.ErrNoDuration) {
		t.Fatalf("expected ErrNoDuration, got %v", err)
	}
}

func TestFFmpegProbeFailure(t *testing.T) {
	script := "echo 'moov atom not found' >&2\nexit 1\n"
	cfg := testsupport.NewConfig(t, testsupport.WithEngineScripts("", script))
	eng := engine.NewFFmpeg(cfg, nil)

	_, err := eng.Probe(context.Background(), "/media/corrupt.mp4")
	var engineErr *engine.Error
	if !errors.As(err, &engineErr) {
		t.Fatalf("expected *engine.Error, got %v", err)
	}
	if engineErr.ExitCode != 1 || !strings.Contains(engineErr.Stderr, "moov atom not found") {
		t.Fatalf("unexpected engine error: %+v", engineErr)
	}
}

func TestFFmpegRunWritesOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEngineScripts(writeLastArg, ""))
	eng := engine.NewFFmpeg(cfg, nil)
	output := filepath.Join(cfg.Paths.ScratchDir, "out.mp4")

	err := eng.Run(context.Background(), engine.Spec{
		Label:  "mux",
		Inputs: []engine.Input{{Path: "/media/in.mp4"}},
		Output: output,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
}

func TestFFmpegRunCapturesDiagnostics(t *testing.T) {
	script := "echo 'Error opening input files: Invalid argument' >&2\nexit 3\n"
	cfg := testsupport.NewConfig(t, testsupport.WithEngineScripts(script, ""))
	eng := engine.NewFFmpeg(cfg, nil)

	err := eng.Run(context.Background(), engine.Spec{Label: "burn", Output: "/tmp/never.mp4"})
	var engineErr *engine.Error
	if !errors.As(err, &engineErr) {
		t.Fatalf("expected *engine.Error, got %v", err)
	}
	if engineErr.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", engineErr.ExitCode)
	}
	if got := engine.Diagnostics(err); !strings.Contains(got, "Invalid argument") {
		t.Fatalf("unexpected diagnostics: %q", got)
	}
	if !strings.Contains(err.Error(), "burn failed (exit 3)") {
		t.Fatalf("unexpected error text: %v", err)
	}
	if engineErr.Argv[0] != cfg.Engine.FFmpegBinary {
		t.Fatalf("expected argv to start with binary, got %v", engineErr.Argv)
	}
}

func TestFFmpegRunTimeout(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEngineScripts("exec sleep 10\n", ""))
	cfg.Engine.StageTimeout = 1
	eng := engine.NewFFmpeg(cfg, nil)

	err := eng.Run(context.Background(), engine.Spec{Label: "concat", Output: "/tmp/never.mp4"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestFFmpegRunCanceledContext(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEngineScripts(writeLastArg, ""))
	cfg.Engine.MaxConcurrent = 1
	eng := engine.NewFFmpeg(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := eng.Run(ctx, engine.Spec{Label: "mux", Output: filepath.Join(cfg.Paths.ScratchDir, "x.mp4")})
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestErrorTailKeepsLastLines(t *testing.T) {
	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, "line")
	}
	lines = append(lines, "final")
	e := &engine.Error{Stderr: strings.Join(lines, "\n")}
	tail := e.Tail()
	if strings.Count(tail, "\n") != 19 || !strings.HasSuffix(tail, "final") {
		t.Fatalf("unexpected tail: %q", tail)
	}
}
