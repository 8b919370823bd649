package render

import (
	"strings"
)

// escapeManifestPath escapes a path for a concat demuxer `file '...'` line.
func escapeManifestPath(path string) string {
	return strings.ReplaceAll(path, `'`, `'\''`)
}

// buildManifest renders one `file '<path>'` line per entry.
func buildManifest(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString("file '")
		b.WriteString(escapeManifestPath(p))
		b.WriteString("'\n")
	}
	return b.String()
}

// escapeFilterPath returns path as a single-quoted filter argument. The
// filtergraph parser strips the quotes and leaves [ ] , ; alone; the option
// parser then sees the escaped ':' as part of the value. Single quotes cannot
// be represented inside the quoted form and are rejected.
func escapeFilterPath(path string) (string, error) {
	if strings.ContainsRune(path, '\'') {
		return "", &UnsupportedPathError{Path: path, Char: '\''}
	}
	normalized := strings.ReplaceAll(path, `\`, "/")
	return "'" + strings.ReplaceAll(normalized, ":", `\:`) + "'", nil
}

// subtitleFilter builds the -vf expression for burning path with style.
func subtitleFilter(path string, style SubtitleStyle) (string, error) {
	escaped, err := escapeFilterPath(path)
	if err != nil {
		return "", err
	}
	filter := "subtitles=filename=" + escaped
	if force := style.ForceStyle(); force != "" {
		filter += ":force_style='" + force + "'"
	}
	return filter, nil
}
