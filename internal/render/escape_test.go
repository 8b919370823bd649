package render

import (
	"errors"
	"strings"
	"testing"

	"montage/internal/services"
)

func TestBuildManifestEscapesQuotes(t *testing.T) {
	got := buildManifest([]string{"/clips/a.mp4", "/clips/it's here.mp4"})
	want := "file '/clips/a.mp4'\nfile '/clips/it'\\''s here.mp4'\n"
	if got != want {
		t.Fatalf("buildManifest() = %q, want %q", got, want)
	}
}

// nextToken reads one token the way libavutil's av_get_token does: a
// backslash takes the next byte literally, single quotes copy everything up to
// the closing quote, and any byte in term ends the token.
func nextToken(s, term string) (token, rest string) {
	var b strings.Builder
	i := 0
	for i < len(s) && !strings.ContainsRune(term, rune(s[i])) {
		switch s[i] {
		case '\\':
			if i+1 < len(s) {
				b.WriteByte(s[i+1])
				i++
			}
		case '\'':
			end := strings.IndexByte(s[i+1:], '\'')
			if end < 0 {
				b.WriteString(s[i+1:])
				i = len(s)
				continue
			}
			b.WriteString(s[i+1 : i+1+end])
			i += end + 1
		default:
			b.WriteByte(s[i])
		}
		i++
	}
	return b.String(), s[i:]
}

// filterOptions splits a single filter into its name and key=value options
// in two passes: first as a filtergraph argument, then as an option string.
// Values without a key are returned in stray.
func filterOptions(filter string) (name string, opts map[string]string, stray []string) {
	name, args, _ := strings.Cut(filter, "=")
	args, _ = nextToken(args, "[],;")
	opts = map[string]string{}
	for args != "" {
		var value string
		if key, after, ok := strings.Cut(args, "="); ok && !strings.ContainsAny(key, ":'\\") {
			value, args = nextToken(after, ":")
			opts[key] = value
		} else {
			value, args = nextToken(args, ":")
			stray = append(stray, value)
		}
		args = strings.TrimPrefix(args, ":")
	}
	return name, opts, stray
}

func TestEscapeFilterPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/data/subs.srt", `'/data/subs.srt'`},
		{`C:\data\subs.srt`, `'C\:/data/subs.srt'`},
		{"/data/[draft], v2:final.srt", `'/data/[draft], v2\:final.srt'`},
	}
	for _, tc := range cases {
		got, err := escapeFilterPath(tc.in)
		if err != nil {
			t.Fatalf("escapeFilterPath(%q) returned error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("escapeFilterPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSubtitleFilterSurvivesFiltergraphParsing(t *testing.T) {
	style := SubtitleStyle{FontName: "Arial", FontSize: 24}
	cases := map[string]string{
		"/data/a:b.srt":               "/data/a:b.srt",
		`C:\data\subs.srt`:            "C:/data/subs.srt",
		"/data/[draft], v2;final.srt": "/data/[draft], v2;final.srt",
		"/data/plain.srt":             "/data/plain.srt",
	}
	for in, want := range cases {
		filter, err := subtitleFilter(in, style)
		if err != nil {
			t.Fatalf("subtitleFilter(%q) returned error: %v", in, err)
		}
		name, opts, stray := filterOptions(filter)
		if name != "subtitles" || len(stray) != 0 {
			t.Fatalf("filter %q parsed as %q with stray options %q", filter, name, stray)
		}
		if opts["filename"] != want {
			t.Fatalf("filter %q: filename = %q, want %q", filter, opts["filename"], want)
		}
		if opts["force_style"] != style.ForceStyle() {
			t.Fatalf("filter %q: force_style = %q, want %q", filter, opts["force_style"], style.ForceStyle())
		}
	}
}

func TestEscapeFilterPathRejectsSingleQuote(t *testing.T) {
	_, err := escapeFilterPath("/data/it's.srt")
	var pathErr *UnsupportedPathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected UnsupportedPathError, got %v", err)
	}
	if pathErr.Char != '\'' {
		t.Fatalf("unexpected char %q", pathErr.Char)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
}

func TestSubtitleFilter(t *testing.T) {
	got, err := subtitleFilter("/data/a:b.srt", SubtitleStyle{FontName: "Arial", FontSize: 24})
	if err != nil {
		t.Fatalf("subtitleFilter returned error: %v", err)
	}
	want := `subtitles=filename='/data/a\:b.srt':force_style='FontName=Arial,FontSize=24,Outline=0,Shadow=0'`
	if got != want {
		t.Fatalf("subtitleFilter() = %q, want %q", got, want)
	}
}
