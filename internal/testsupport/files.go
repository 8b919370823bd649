package testsupport

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// SampleSRT is a two-cue subtitle file accepted by the burn stage.
const SampleSRT = "1\n00:00:00,000 --> 00:00:02,000\nFirst line\n\n2\n00:00:02,500 --> 00:00:04,000\nSecond line\n"

type patternReader struct{}

func (patternReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'B'
	}
	return len(p), nil
}

// WriteFile creates path, and any missing parents, holding size filler
// bytes. Sizes below one are raised to one so the file is never empty.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	if _, err := io.CopyN(f, patternReader{}, max(size, 1)); err != nil {
		_ = f.Close()
		t.Fatalf("write %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
}

// WriteInputs lays out a soundtrack, SampleSRT and the named clips under dir
// and returns their paths.
func WriteInputs(t testing.TB, dir string, clips ...string) (audio, subtitle string, clipPaths []string) {
	t.Helper()

	audio = filepath.Join(dir, "song.mp3")
	WriteFile(t, audio, 64)
	subtitle = filepath.Join(dir, "lyrics.srt")
	if err := os.WriteFile(subtitle, bytes.TrimSpace([]byte(SampleSRT)), 0o644); err != nil {
		t.Fatalf("write %s: %v", subtitle, err)
	}
	for _, clip := range clips {
		path := filepath.Join(dir, clip)
		WriteFile(t, path, 64)
		clipPaths = append(clipPaths, path)
	}
	return audio, subtitle, clipPaths
}
