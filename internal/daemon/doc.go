// Package daemon coordinates the long-running montage process.
//
// It wires configuration, the job store, the workflow manager and the HTTP
// upload API into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon also schedules retention sweeps with cron,
// exposes queue maintenance helpers for the CLI control socket, and records a
// dependency snapshot at start.
//
// Keep orchestration logic here: rendering lives in internal/render and job
// execution in internal/workflow, while the daemon focuses on startup,
// shutdown and high level coordination.
package daemon
