// Package engine abstracts the external transcoding engine.
//
// Engine exposes two capabilities: Probe, which inspects a media file, and
// Run, which executes a declarative Spec (inputs, filter/encode arguments,
// output). FFmpeg is the production implementation; it shells out to ffprobe
// and ffmpeg, bounds each invocation with the configured stage timeout and
// returns *Error with the captured stderr when the process fails.
package engine
