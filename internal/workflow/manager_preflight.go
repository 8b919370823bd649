package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"montage/internal/logging"
	"montage/internal/preflight"
)

// runPreflightChecks validates readiness before claiming a job. Passing
// checks are not logged; failures are logged at error level.
func (m *Manager) runPreflightChecks(ctx context.Context, logger *slog.Logger) error {
	if m.preflight == nil {
		return nil
	}
	results := m.preflight(ctx, m.cfg)
	failed := preflight.Failed(results)
	if len(failed) == 0 {
		return nil
	}
	for _, r := range failed {
		logger.Error("preflight check failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported issue; the worker retries automatically"),
		)
	}
	return fmt.Errorf("preflight checks failed: %s", preflight.Summary(results))
}
