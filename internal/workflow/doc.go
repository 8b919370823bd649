// Package workflow runs queued render jobs in the background.
//
// The Manager starts a fixed number of workers. Each worker claims the oldest
// pending job, runs the render pipeline with a heartbeat, mirrors pipeline
// transitions onto the job record and records the outcome. A separate loop
// reclaims processing jobs whose heartbeat went stale, which happens when a
// worker process disappears without marking its job.
//
// Jobs are never retried automatically; `montage queue retry` moves failed
// jobs back to pending.
package workflow
