// Package preflight provides readiness checks for the binaries and
// filesystem paths that montage depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before claiming each job. When a check
//     fails the worker backs off instead of failing the job.
//   - The CLI "montage status" command renders every Result as a table row.
//
// Optional features are only checked when enabled.
package preflight
