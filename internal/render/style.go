package render

import (
	"strconv"
	"strings"

	"montage/internal/config"
)

// SubtitleStyle holds the libass force_style parameters for burn-in.
type SubtitleStyle struct {
	FontName      string
	FontSize      int
	PrimaryColour string
	OutlineColour string
	BorderStyle   int
	Outline       int
	Shadow        int
	Alignment     int
	MarginV       int
}

// StyleFromConfig maps the [subtitles] section onto a SubtitleStyle.
func StyleFromConfig(s config.Subtitles) SubtitleStyle {
	return SubtitleStyle{
		FontName:      s.FontName,
		FontSize:      s.FontSize,
		PrimaryColour: s.PrimaryColour,
		OutlineColour: s.OutlineColour,
		BorderStyle:   s.BorderStyle,
		Outline:       s.Outline,
		Shadow:        s.Shadow,
		Alignment:     s.Alignment,
		MarginV:       s.MarginV,
	}
}

// ForceStyle renders the comma separated KEY=VALUE list. Empty strings and
// zero sizes are omitted.
func (s SubtitleStyle) ForceStyle() string {
	parts := make([]string, 0, 9)
	add := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			parts = append(parts, key+"="+value)
		}
	}
	addInt := func(key string, value int, keepZero bool) {
		if value != 0 || keepZero {
			parts = append(parts, key+"="+strconv.Itoa(value))
		}
	}
	add("FontName", s.FontName)
	addInt("FontSize", s.FontSize, false)
	add("PrimaryColour", s.PrimaryColour)
	add("OutlineColour", s.OutlineColour)
	addInt("BorderStyle", s.BorderStyle, false)
	addInt("Outline", s.Outline, true)
	addInt("Shadow", s.Shadow, true)
	addInt("Alignment", s.Alignment, false)
	addInt("MarginV", s.MarginV, false)
	return strings.Join(parts, ",")
}
