package fileutil

import (
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxNameLength = 120

// SanitizeName reduces an uploaded file name to a safe base name: directory
// components are dropped, accents folded to ASCII where possible, and
// anything outside letters, digits, dot, dash and underscore becomes an
// underscore. Quotes never survive, so the result can be embedded in engine
// filter expressions. Empty results map to "file".
func SanitizeName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	name = path.Base(name)
	if name == "." || name == "/" {
		name = ""
	}

	folder := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(folder, name); err == nil {
		name = folded
	}

	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	out := strings.Trim(b.String(), "._-")
	if len(out) > maxNameLength {
		ext := path.Ext(out)
		if len(ext) > 16 {
			ext = ""
		}
		out = strings.TrimRight(out[:maxNameLength-len(ext)], "._-") + ext
	}
	if out == "" {
		return "file"
	}
	return out
}

// HasAllowedExt reports whether name ends in one of exts. Matching is case
// insensitive; exts carry their leading dot. An empty list allows everything.
func HasAllowedExt(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(path.Ext(name))
	for _, allowed := range exts {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}
