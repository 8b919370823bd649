// Package ffprobe runs ffprobe and decodes its JSON report into typed
// stream and format records.
//
// Inspect is the only entry point that touches a subprocess; the helpers on
// Result are pure and used by the engine to build a MediaInfo snapshot.
package ffprobe
