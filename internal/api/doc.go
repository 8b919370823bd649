// Package api defines wire-format types and transport-agnostic services for
// the HTTP API and the CLI.
//
// # Key Types
//
// Job: transport representation of a render job with progress and failure
// summary. Raw engine diagnostics are only included when explicitly requested.
//
// WorkflowStatus and DaemonStatus: workflow state, queue stats, dependency
// and preflight results.
//
// Session: an upload session directory that collects one audio file, one
// subtitle file and the clips of a job before it is enqueued.
//
// # Design Notes
//
// DTOs use camelCase JSON tags, except the upload, check and results payloads,
// which keep the snake_case keys existing front ends already read. Timestamps
// use RFC3339 with milliseconds.
package api
