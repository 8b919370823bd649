package preflight

import (
	"context"
	"strings"

	"montage/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
		CheckDirectoryAccess("Upload directory", cfg.Paths.UploadDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
	}

	if cfg.Retention.MinFreeGiB > 0 {
		results = append(results,
			CheckFreeSpace("Scratch free space", cfg.Paths.ScratchDir, cfg.Retention.MinFreeGiB),
			CheckFreeSpace("Output free space", cfg.Paths.OutputDir, cfg.Retention.MinFreeGiB),
		)
	}

	results = append(results, CheckDependencies(ctx, cfg)...)

	if cfg.Publish.Enabled {
		results = append(results, CheckPublishConfig(cfg.Publish))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// Summary joins failed results into one line for logs and job errors.
func Summary(results []Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range Failed(results) {
		parts = append(parts, r.Name+": "+r.Detail)
	}
	return strings.Join(parts, "; ")
}
