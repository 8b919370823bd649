package api

import (
	"path/filepath"
	"time"

	"github.com/samber/lo"

	"montage/internal/deps"
	"montage/internal/preflight"
	"montage/internal/queue"
	"montage/internal/workflow"
)

// ConvertOptions controls which job fields are exposed.
type ConvertOptions struct {
	IncludeDiagnostics bool
}

// FromQueueJob converts a queue.Job into its transport representation.
func FromQueueJob(job *queue.Job, opts ConvertOptions) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		ID:            job.ID,
		SessionID:     job.SessionID,
		CorrelationID: job.CorrelationID,
		Status:        string(job.Status),
		Progress: JobProgress{
			Stage:   job.Stage,
			Percent: job.ProgressPercent,
			Message: job.ProgressMessage,
		},
		AudioFile:      baseName(job.AudioPath),
		SubtitleFile:   baseName(job.SubtitlePath),
		ClipCount:      len(job.ClipPaths),
		OutputFilename: job.OutputName(),
		PublishedURL:   job.PublishedURL,
		ErrorKind:      job.ErrorKind,
		ErrorMessage:   job.ErrorMessage,
		CreatedAt:      FormatTime(job.CreatedAt),
		UpdatedAt:      FormatTime(job.UpdatedAt),
		StartedAt:      formatTimePtr(job.StartedAt),
		FinishedAt:     formatTimePtr(job.FinishedAt),
	}
	if opts.IncludeDiagnostics {
		dto.ErrorDetail = job.ErrorDetail
	}
	return dto
}

// FromQueueJobs converts a slice of jobs, preserving order.
func FromQueueJobs(jobs []*queue.Job, opts ConvertOptions) []Job {
	return lo.Map(jobs, func(job *queue.Job, _ int) Job {
		return FromQueueJob(job, opts)
	})
}

// FromStatusSummary converts the workflow summary.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	status := WorkflowStatus{
		Running:    summary.Running,
		Workers:    summary.Workers,
		QueueStats: MergeQueueStats(summary.QueueStats),
		LastError:  summary.LastError,
		ActiveJobs: make([]Job, 0, len(summary.ActiveJobs)),
	}
	if summary.LastJob != nil {
		last := FromQueueJob(summary.LastJob, ConvertOptions{})
		status.LastJob = &last
	}
	for i := range summary.ActiveJobs {
		status.ActiveJobs = append(status.ActiveJobs, FromQueueJob(&summary.ActiveJobs[i], ConvertOptions{}))
	}
	return status
}

// MergeQueueStats returns counts for every known status, including zeros.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// FromDependencies converts dependency checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	return lo.Map(statuses, func(dep deps.Status, _ int) DependencyStatus {
		return DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Version:     dep.Version,
			Detail:      dep.Detail,
		}
	})
}

// FromPreflight converts preflight results.
func FromPreflight(results []preflight.Result) []PreflightCheck {
	return lo.Map(results, func(r preflight.Result, _ int) PreflightCheck {
		return PreflightCheck{Name: r.Name, Passed: r.Passed, Detail: r.Detail}
	})
}

// FormatTime renders t for API payloads; the zero time renders empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatTime(*t)
}

func baseName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}
