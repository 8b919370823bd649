// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships
// the matching client used by the CLI.
//
// Request and response DTOs live in types.go and reuse the api package job
// representation so CLI output matches the HTTP surface. Add new endpoints
// there first to keep the protocol stable for older clients.
package ipc
