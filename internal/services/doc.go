// Package services defines shared utilities consumed by the render pipeline,
// the workflow manager, and the HTTP surface.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, pipeline stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures carry stage
//     context while remaining classifiable with errors.Is.
//
// The markers are deliberately coarse. Stage-specific error types in the
// render package wrap them so callers can branch on either level.
package services
