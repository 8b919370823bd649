// Package publish copies finished renders to object storage.
package publish

import (
	"context"
	"log/slog"

	"montage/internal/config"
)

// Publisher uploads a finished output and returns where it can be fetched.
type Publisher interface {
	Publish(ctx context.Context, path string) (string, error)
}

// Nop leaves outputs on local disk only.
type Nop struct{}

// Publish returns an empty location.
func (Nop) Publish(context.Context, string) (string, error) { return "", nil }

// NewFromConfig returns an S3 publisher when publishing is enabled and a
// Nop publisher otherwise.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Publisher, error) {
	if cfg == nil || !cfg.Publish.Enabled {
		return Nop{}, nil
	}
	return NewS3(ctx, cfg.Publish, logger)
}
