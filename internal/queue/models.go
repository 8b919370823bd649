package queue

import (
	"path/filepath"
	"time"
)

// Status represents the lifecycle of a render job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DaemonStopReason is the error message set when jobs are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus maps user input onto a known status.
func ParseStatus(value string) (Status, bool) {
	status := Status(value)
	_, ok := statusSet[status]
	return status, ok
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// DatabaseHealth captures diagnostic information about the jobs database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TableExists      bool
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// Job represents a render job persisted in SQLite.
type Job struct {
	ID              int64
	SessionID       string
	CorrelationID   string
	AudioPath       string
	SubtitlePath    string
	ClipPaths       []string
	OutputPath      string
	Status          Status
	Stage           string
	ProgressPercent float64
	ProgressMessage string
	ErrorKind       string
	ErrorMessage    string
	ErrorDetail     string
	PublishedURL    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       *time.Time
	FinishedAt      *time.Time
	LastHeartbeat   *time.Time
}

// NewJobParams describes the inputs of a job to enqueue.
type NewJobParams struct {
	SessionID     string
	CorrelationID string
	AudioPath     string
	SubtitlePath  string
	ClipPaths     []string
	OutputPath    string
}

// OutputName returns the base name of the output file.
func (j *Job) OutputName() string {
	if j == nil || j.OutputPath == "" {
		return ""
	}
	return filepath.Base(j.OutputPath)
}

// IsTerminal reports whether the job reached completed or failed.
func (j *Job) IsTerminal() bool {
	return j != nil && (j.Status == StatusCompleted || j.Status == StatusFailed)
}

// Elapsed returns the processing time for started jobs.
func (j *Job) Elapsed(now time.Time) time.Duration {
	if j == nil || j.StartedAt == nil {
		return 0
	}
	end := now
	if j.FinishedAt != nil {
		end = *j.FinishedAt
	}
	if end.Before(*j.StartedAt) {
		return 0
	}
	return end.Sub(*j.StartedAt)
}
