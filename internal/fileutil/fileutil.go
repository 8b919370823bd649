package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrTooLarge reports a stream that exceeded its size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// partialName is hidden so directory listings skip files still being written.
func partialName(dst string) string {
	return filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".partial")
}

// WriteStream copies r into dst. Data lands in a hidden sibling first and is
// renamed into place once complete, so dst only ever holds a whole file. A
// positive limit caps the bytes accepted; exceeding it returns ErrTooLarge.
// On any error the partial file is removed and an existing dst is untouched.
func WriteStream(dst string, r io.Reader, limit int64) (int64, error) {
	tmp := partialName(dst)
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	written, err := io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err == nil && limit > 0 && written > limit {
		err = fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	if err == nil {
		err = os.Rename(tmp, dst)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return written, err
	}
	return written, nil
}
