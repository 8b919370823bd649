// Command montage renders music videos from uploaded clips, an audio track and
// an SRT file, either in-process (`montage render`) or through the background
// daemon it starts, stops and queries.
//
// Queue commands talk to the daemon over its Unix socket and fall back to the
// job database directly when no daemon is running.
package main
