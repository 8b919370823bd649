package render

import (
	"context"
)

// Probe returns the duration engine reports for path. Non-positive values are
// returned as-is; callers decide whether they are usable.
func (r *Renderer) Probe(ctx context.Context, path string) (float64, error) {
	info, err := r.eng.Probe(ctx, path)
	if err != nil {
		return 0, &ProbeError{Path: path, Err: err}
	}
	return info.Duration, nil
}
