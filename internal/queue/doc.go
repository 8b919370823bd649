// Package queue persists render jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages the database connection, schema initialization, atomic
// claiming of pending jobs, heartbeat tracking, stale-job recovery and the
// maintenance operations behind `montage queue`. A job row records its inputs,
// its pipeline stage, and on failure the error kind, message and engine
// diagnostics so failures stay observable after the worker has moved on.
//
// The database is treated as transient storage for in-flight and recent jobs
// rather than a long-term archive. Schema changes append a migration in
// schema.go; a database written by a newer build is refused.
package queue
