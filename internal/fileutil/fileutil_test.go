package fileutil

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteStreamLimit(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "upload.bin")

	n, err := WriteStream(dst, strings.NewReader("12345"), 5)
	if err != nil || n != 5 {
		t.Fatalf("WriteStream at limit = %d, %v", n, err)
	}

	tooBig := filepath.Join(dir, "big.bin")
	_, err = WriteStream(tooBig, strings.NewReader("123456"), 5)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, statErr := os.Stat(tooBig); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected oversized file absent, stat err %v", statErr)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "upload.bin" {
		t.Fatalf("expected only the complete upload, got %v", entries)
	}
}

func TestWriteStreamKeepsExistingOnFailure(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(dst, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteStream(dst, strings.NewReader(strings.Repeat("x", 64)), 8); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil || !bytes.Equal(got, []byte("original")) {
		t.Fatalf("expected original content kept, got %q %v", got, err)
	}

	if _, err := WriteStream(dst, strings.NewReader("replacement"), 0); err != nil {
		t.Fatalf("unlimited WriteStream: %v", err)
	}
	got, _ = os.ReadFile(dst)
	if string(got) != "replacement" {
		t.Fatalf("expected replacement content, got %q", got)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"clip.mp4", "clip.mp4"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\song.mp3`, "song.mp3"},
		{"it's a [test], ok.srt", "it_s_a_test_ok.srt"},
		{"Café del Mar.mp3", "Cafe_del_Mar.mp3"},
		{"Bài hát mới.srt", "Bai_hat_moi.srt"},
		{"...", "file"},
		{"", "file"},
		{"  spaced   name .mov", "spaced_name_.mov"},
	}
	for _, tc := range cases {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Fatalf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeNameTruncates(t *testing.T) {
	long := strings.Repeat("a", 300) + ".mp4"
	got := SanitizeName(long)
	if len(got) > maxNameLength || !strings.HasSuffix(got, ".mp4") {
		t.Fatalf("unexpected truncation: %q (%d)", got, len(got))
	}
}

func TestHasAllowedExt(t *testing.T) {
	exts := []string{".mp4", ".mov"}
	if !HasAllowedExt("CLIP.MP4", exts) || HasAllowedExt("clip.exe", exts) {
		t.Fatal("unexpected extension matching")
	}
	if !HasAllowedExt("anything", nil) {
		t.Fatal("expected empty list to allow everything")
	}
}
