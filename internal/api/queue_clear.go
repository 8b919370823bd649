package api

import (
	"context"
	"fmt"

	"montage/internal/services"
)

// ClearScope selects which jobs a queue clear removes. Processing jobs are
// never removed.
type ClearScope string

const (
	ClearAll       ClearScope = "all"
	ClearCompleted ClearScope = "completed"
	ClearFailed    ClearScope = "failed"
)

// QueueClearer is the subset of the store used by ClearJobs.
type QueueClearer interface {
	Clear(ctx context.Context) (int64, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
}

// ClearJobs removes jobs matching scope. An empty scope clears everything
// that is not processing.
func ClearJobs(ctx context.Context, store QueueClearer, scope ClearScope) (int64, error) {
	switch scope {
	case "", ClearAll:
		return store.Clear(ctx)
	case ClearCompleted:
		return store.ClearCompleted(ctx)
	case ClearFailed:
		return store.ClearFailed(ctx)
	default:
		return 0, services.Wrap(services.ErrValidation, "queue", "clear",
			fmt.Sprintf("unknown clear scope %q", scope), nil)
	}
}
