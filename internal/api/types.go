package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a render job in a transport-friendly format.
type Job struct {
	ID             int64       `json:"id"`
	SessionID      string      `json:"sessionId"`
	CorrelationID  string      `json:"correlationId"`
	Status         string      `json:"status"`
	Progress       JobProgress `json:"progress"`
	AudioFile      string      `json:"audioFile"`
	SubtitleFile   string      `json:"subtitleFile"`
	ClipCount      int         `json:"clipCount"`
	OutputFilename string      `json:"outputFilename"`
	PublishedURL   string      `json:"publishedUrl,omitempty"`
	ErrorKind      string      `json:"errorKind,omitempty"`
	ErrorMessage   string      `json:"errorMessage,omitempty"`
	ErrorDetail    string      `json:"errorDetail,omitempty"`
	CreatedAt      string      `json:"createdAt,omitempty"`
	UpdatedAt      string      `json:"updatedAt,omitempty"`
	StartedAt      string      `json:"startedAt,omitempty"`
	FinishedAt     string      `json:"finishedAt,omitempty"`
}

// JobProgress captures pipeline progress for a job.
type JobProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running    bool           `json:"running"`
	Workers    int            `json:"workers"`
	QueueStats map[string]int `json:"queueStats"`
	LastError  string         `json:"lastError,omitempty"`
	LastJob    *Job           `json:"lastJob,omitempty"`
	ActiveJobs []Job          `json:"activeJobs"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Version     string `json:"version,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// PreflightCheck mirrors a single readiness check.
type PreflightCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	LogPath      string             `json:"logPath"`
	APIAddress   string             `json:"apiAddress,omitempty"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Preflight    []PreflightCheck   `json:"preflight"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// UploadResponse is returned when an upload has been accepted.
type UploadResponse struct {
	Message        string `json:"message"`
	Detail         string `json:"detail"`
	JobID          int64  `json:"job_id"`
	SessionID      string `json:"session_id"`
	OutputFilename string `json:"output_filename"`
}

// Check states reported by CheckOutput.
const (
	CheckReady      = "ready"
	CheckPending    = "pending"
	CheckProcessing = "processing"
	CheckFailed     = "failed"
	CheckNotFound   = "not_found"
)

// CheckResponse reports whether an output is ready for download.
type CheckResponse struct {
	Ready         bool    `json:"ready"`
	Filename      string  `json:"filename"`
	Status        string  `json:"status"`
	Stage         string  `json:"stage,omitempty"`
	Percent       float64 `json:"percent,omitempty"`
	Message       string  `json:"message,omitempty"`
	CorrelationID string  `json:"correlation_id,omitempty"`
	PublishedURL  string  `json:"published_url,omitempty"`
	Size          int64   `json:"size,omitempty"`
}

// OutputFile describes a rendered file in the output directory.
type OutputFile struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

// ResultsResponse lists rendered outputs, newest first. Results carries the
// bare names; Files adds size and modification time.
type ResultsResponse struct {
	Results []string     `json:"results"`
	Files   []OutputFile `json:"files"`
}
