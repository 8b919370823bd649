package ipc

import "montage/internal/api"

// Job and status payloads are shared with the HTTP API.
type (
	Job            = api.Job
	StatusResponse = api.DaemonStatus
)

type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// QueueListRequest filters by status names; an empty list returns every job.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

type QueueListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobRequest addresses a single job.
type JobRequest struct {
	ID int64 `json:"id"`
}

// JobResponse carries one job back to the caller.
type JobResponse struct {
	Job Job `json:"job"`
}

// JobIDsRequest addresses a set of jobs. Retry treats an empty set as every
// failed job; remove rejects it.
type JobIDsRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueClearRequest removes jobs in Scope. Empty means api.ClearAll.
type QueueClearRequest struct {
	Scope api.ClearScope `json:"scope"`
}

// CountResponse reports how many rows a bulk operation touched.
type CountResponse struct {
	Count int64 `json:"count"`
}

type (
	QueueSubmitRequest  = api.LocalSubmission
	QueueRetryResponse  = api.RetryJobsResult
	QueueRemoveResponse = api.RemoveJobsResult
)

type QueueHealthResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Completed  int `json:"completed"`
}

type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    int      `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalJobs        int      `json:"total_jobs"`
	Error            string   `json:"error"`
}

// CleanupResponse lists what a retention sweep removed, grouped by tree.
type CleanupResponse struct {
	Scratch  []string `json:"scratch"`
	Uploads  []string `json:"uploads"`
	Orphaned []string `json:"orphaned"`
	Outputs  []string `json:"outputs"`
	Errors   []string `json:"errors"`
}

// Removed counts every removed entry.
func (r CleanupResponse) Removed() int {
	return len(r.Scratch) + len(r.Uploads) + len(r.Orphaned) + len(r.Outputs)
}

// Empty is the argument of methods that take no input.
type Empty struct{}
