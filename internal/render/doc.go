// Package render turns a soundtrack, a subtitle file and a set of clips into
// one captioned video whose length matches the soundtrack.
//
// The stages run strictly in order on top of an engine.Engine:
//
//	probe audio → build playlist → concatenate → attach audio → burn subtitles
//
// Renderer.Run drives them as a small state machine and owns every
// intermediate file it creates. Intermediates live in the configured scratch
// directory under unique names and are removed on every exit path; the final
// output is never part of that set.
package render
