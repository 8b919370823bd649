package staging

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"montage/internal/logging"
)

// CleanStaleResult lists what a sweep removed and what it failed to remove.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

func (r *CleanStaleResult) fail(path string, err error) {
	r.Errors = append(r.Errors, CleanupError{Path: path, Error: err})
}

// EntryInfo describes one scratch, upload or output entry. Size is
// recursive for directories.
type EntryInfo struct {
	Name    string
	Path    string
	IsDir   bool
	ModTime time.Time
	Size    int64
}

// selector reports whether an entry should be removed.
type selector func(entry fs.DirEntry, info fs.FileInfo) bool

// CleanStale removes entries of dir older than maxAge, files and session
// directories alike. A zero maxAge disables the sweep.
func CleanStale(ctx context.Context, dir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	return CleanStaleExcept(ctx, dir, maxAge, nil, logger)
}

// CleanStaleExcept is CleanStale that never touches names in keep.
func CleanStaleExcept(ctx context.Context, dir string, maxAge time.Duration, keep map[string]struct{}, logger *slog.Logger) CleanStaleResult {
	if maxAge <= 0 {
		return CleanStaleResult{}
	}
	cutoff := time.Now().Add(-maxAge)
	return sweep(ctx, dir, logger, func(entry fs.DirEntry, info fs.FileInfo) bool {
		_, kept := keep[entry.Name()]
		return !kept && info.ModTime().Before(cutoff)
	})
}

// CleanOrphaned removes session directories under uploadDir that no job
// references. Directories younger than grace are left in place so an
// upload in progress is never removed before its job row exists.
func CleanOrphaned(ctx context.Context, uploadDir string, activeSessions map[string]struct{}, grace time.Duration, logger *slog.Logger) CleanStaleResult {
	cutoff := time.Now().Add(-grace)
	return sweep(ctx, uploadDir, logger, func(entry fs.DirEntry, info fs.FileInfo) bool {
		if !entry.IsDir() {
			return false
		}
		_, active := activeSessions[entry.Name()]
		return !active && !info.ModTime().After(cutoff)
	})
}

// sweep removes the direct children of dir chosen by pick. A missing dir
// is not an error. Cancellation stops the sweep between entries.
func sweep(ctx context.Context, dir string, logger *slog.Logger, pick selector) CleanStaleResult {
	var result CleanStaleResult
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			result.fail(dir, err)
		}
		return result
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.fail(path, err)
			continue
		}
		if pick(entry, info) {
			removeEntry(&result, path, info.ModTime(), logger)
		}
	}
	return result
}

func removeEntry(result *CleanStaleResult, path string, modTime time.Time, logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.RemoveAll(path); err != nil {
		result.fail(path, err)
		logger.Warn("failed to remove stale entry",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "retention_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "check directory permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"))
		return
	}
	result.Removed = append(result.Removed, path)
	logger.Info("removed stale entry",
		logging.String("path", path),
		logging.Duration("age", time.Since(modTime).Round(time.Second)),
		logging.String(logging.FieldEventType, "retention_cleanup"))
}

// ListEntries returns the direct children of dir. A missing or empty dir
// yields no entries and no error; entries that vanish mid-listing are
// skipped.
func ListEntries(dir string) ([]EntryInfo, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]EntryInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		e := EntryInfo{
			Name:    entry.Name(),
			Path:    filepath.Join(dir, entry.Name()),
			IsDir:   entry.IsDir(),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		}
		if e.IsDir {
			e.Size = treeSize(e.Path)
		}
		out = append(out, e)
	}
	return out, nil
}

// treeSize sums regular file sizes under root, skipping unreadable parts.
func treeSize(root string) int64 {
	var size int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}
