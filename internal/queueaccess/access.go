package queueaccess

import (
	"context"
	"fmt"

	"montage/internal/api"
	"montage/internal/config"
	"montage/internal/ipc"
	"montage/internal/logging"
	"montage/internal/queue"
)

// Access is the queue surface the CLI needs. It is satisfied both by the
// daemon over IPC and by the job database opened in-process.
type Access interface {
	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, statuses []string) ([]api.Job, error)
	Describe(ctx context.Context, id int64) (*api.Job, error)
	Submit(ctx context.Context, req api.LocalSubmission) (api.Job, error)
	Clear(ctx context.Context, scope api.ClearScope) (int64, error)
	Remove(ctx context.Context, ids []int64) (api.RemoveJobsResult, error)
	ResetStuck(ctx context.Context) (int64, error)
	Retry(ctx context.Context, ids []int64) (api.RetryJobsResult, error)
	Cleanup(ctx context.Context) (ipc.CleanupResponse, error)
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by the store. Diagnostics are
// included because the caller already has local file access.
func NewStoreAccess(store *queue.Store, cfg *config.Config) Access {
	return storeAccess{
		store:   store,
		cfg:     cfg,
		service: api.NewQueueService(store, api.ConvertOptions{IncludeDiagnostics: true}),
	}
}

// unwrap dereferences an IPC response, mapping a call error to the zero value.
func unwrap[T any](resp *T, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	return *resp, nil
}

type ipcAccess struct {
	client *ipc.Client
}

func (a ipcAccess) Stats(context.Context) (map[string]int, error) {
	status, err := unwrap(a.client.Status())
	return status.Workflow.QueueStats, err
}

func (a ipcAccess) List(_ context.Context, statuses []string) ([]api.Job, error) {
	resp, err := unwrap(a.client.QueueList(statuses))
	return resp.Jobs, err
}

func (a ipcAccess) Describe(_ context.Context, id int64) (*api.Job, error) {
	resp, err := a.client.QueueDescribe(id)
	if err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

func (a ipcAccess) Submit(_ context.Context, req api.LocalSubmission) (api.Job, error) {
	resp, err := unwrap(a.client.QueueSubmit(req))
	return resp.Job, err
}

func (a ipcAccess) Clear(_ context.Context, scope api.ClearScope) (int64, error) {
	resp, err := unwrap(a.client.QueueClear(scope))
	return resp.Count, err
}

func (a ipcAccess) Remove(_ context.Context, ids []int64) (api.RemoveJobsResult, error) {
	return unwrap(a.client.QueueRemove(ids))
}

func (a ipcAccess) ResetStuck(context.Context) (int64, error) {
	resp, err := unwrap(a.client.QueueReset())
	return resp.Count, err
}

func (a ipcAccess) Retry(_ context.Context, ids []int64) (api.RetryJobsResult, error) {
	return unwrap(a.client.QueueRetry(ids))
}

func (a ipcAccess) Cleanup(context.Context) (ipc.CleanupResponse, error) {
	return unwrap(a.client.Cleanup())
}

type storeAccess struct {
	store   *queue.Store
	cfg     *config.Config
	service *api.QueueService
}

func (a storeAccess) Stats(ctx context.Context) (map[string]int, error) {
	return a.service.Stats(ctx)
}

func (a storeAccess) List(ctx context.Context, statuses []string) ([]api.Job, error) {
	return a.service.List(ctx, statuses)
}

func (a storeAccess) Describe(ctx context.Context, id int64) (*api.Job, error) {
	job, err := a.service.Describe(ctx, id)
	if err == nil && job == nil {
		err = fmt.Errorf("job %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (a storeAccess) Submit(ctx context.Context, req api.LocalSubmission) (api.Job, error) {
	job, err := api.SubmitLocal(ctx, a.cfg, a.store, req)
	if err != nil {
		return api.Job{}, err
	}
	return api.FromQueueJob(job, api.ConvertOptions{}), nil
}

func (a storeAccess) Clear(ctx context.Context, scope api.ClearScope) (int64, error) {
	return api.ClearJobs(ctx, a.store, scope)
}

func (a storeAccess) Remove(ctx context.Context, ids []int64) (api.RemoveJobsResult, error) {
	return api.RemoveJobsByID(ctx, a.store, ids)
}

func (a storeAccess) ResetStuck(ctx context.Context) (int64, error) {
	return a.store.ResetStuckProcessing(ctx)
}

// Retry with no ids retries every failed job, matching the daemon.
func (a storeAccess) Retry(ctx context.Context, ids []int64) (api.RetryJobsResult, error) {
	if len(ids) > 0 {
		return api.RetryFailedJobsByID(ctx, a.store, ids)
	}
	updated, err := a.store.RetryFailed(ctx)
	return api.RetryJobsResult{UpdatedCount: updated, Jobs: []api.RetryJobResult{}}, err
}

func (a storeAccess) Cleanup(ctx context.Context) (ipc.CleanupResponse, error) {
	report, err := api.RunRetention(ctx, a.cfg, a.store, logging.NewNop())
	return ipc.CleanupFromReport(report), err
}
