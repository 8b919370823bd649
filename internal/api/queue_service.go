package api

import (
	"context"
	"fmt"
	"strings"

	"montage/internal/queue"
	"montage/internal/services"
)

// QueueReader is the read side of the job store.
type QueueReader interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	GetByID(ctx context.Context, id int64) (*queue.Job, error)
}

// QueueService answers job queries with transport DTOs. The same service
// backs the HTTP API, the IPC socket and offline CLI access; only the
// ConvertOptions differ.
type QueueService struct {
	store QueueReader
	opts  ConvertOptions
}

func NewQueueService(store QueueReader, opts ConvertOptions) *QueueService {
	return &QueueService{store: store, opts: opts}
}

// ParseStatusFilter accepts repeated and comma separated status names.
// Blank entries are skipped; an unknown name is a validation error.
func ParseStatusFilter(values []string) ([]queue.Status, error) {
	var statuses []queue.Status
	for _, value := range values {
		for _, token := range strings.Split(value, ",") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			status, ok := queue.ParseStatus(token)
			if !ok {
				return nil, services.Wrap(services.ErrValidation, "queue", "parse status filter",
					fmt.Sprintf("unknown status %q", token), nil)
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

// List returns jobs whose status matches filter, or every job for an empty
// filter. The result is never nil.
func (s *QueueService) List(ctx context.Context, filter []string) ([]Job, error) {
	statuses, err := ParseStatusFilter(filter)
	if err != nil {
		return nil, err
	}
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromQueueJobs(jobs, s.opts), nil
}

// Stats returns counts for every known status, zeros included.
func (s *QueueService) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeQueueStats(stats), nil
}

// Describe returns nil, nil when no job has id.
func (s *QueueService) Describe(ctx context.Context, id int64) (*Job, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	dto := FromQueueJob(job, s.opts)
	return &dto, nil
}
