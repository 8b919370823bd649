package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"montage/internal/api"
	"montage/internal/config"
	"montage/internal/deps"
	"montage/internal/ipc"
	"montage/internal/preflight"
	"montage/internal/queue"
)

const (
	SeverityOK    = "ok"
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)

const offlineQueryTimeout = 2 * time.Second

// StatusLine is one row of the status report.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missing_required"`
	MissingOptional int    `json:"missing_optional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// Snapshot is the combined view printed by `montage status`.
type Snapshot struct {
	Reachable         bool              `json:"reachable"`
	Status            api.DaemonStatus  `json:"status"`
	SystemChecks      []StatusLine      `json:"system_checks"`
	DependencySummary DependencySummary `json:"dependency_summary"`
}

// BuildStatusSnapshot asks the daemon for its status. When nothing answers
// on socketPath the queue database, binaries and preflight checks are read
// locally instead.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*Snapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snap := &Snapshot{}
	if status, ok := liveStatus(socketPath); ok {
		snap.Reachable = true
		snap.Status = status
	} else {
		snap.Status = offlineStatus(ctx, cfg)
	}
	snap.SystemChecks = BuildSystemChecks(cfg, snap.Reachable, snap.Status)
	snap.DependencySummary = BuildDependencySummary(snap.Status.Dependencies)
	return snap, nil
}

func liveStatus(socketPath string) (api.DaemonStatus, bool) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		return api.DaemonStatus{}, false
	}
	defer client.Close()
	resp, err := client.Status()
	if err != nil {
		return api.DaemonStatus{}, false
	}
	return *resp, true
}

func offlineStatus(ctx context.Context, cfg *config.Config) api.DaemonStatus {
	ctx, cancel := context.WithTimeout(ctx, offlineQueryTimeout)
	defer cancel()

	status := api.DaemonStatus{QueueDBPath: cfg.QueueDBPath()}
	var counts map[queue.Status]int
	if store, err := queue.Open(cfg); err == nil {
		if stats, err := store.Stats(ctx); err == nil {
			counts = stats
		}
		_ = store.Close()
	}
	status.Workflow.QueueStats = api.MergeQueueStats(counts)
	status.Dependencies = api.FromDependencies(deps.CheckBinaries(deps.Requirements(cfg)))
	status.Preflight = api.FromPreflight(preflight.RunAll(ctx, cfg))
	return status
}

// BuildSystemChecks turns runtime state and preflight results into report
// lines, daemon first.
func BuildSystemChecks(cfg *config.Config, reachable bool, status api.DaemonStatus) []StatusLine {
	lines := []StatusLine{daemonLine(reachable, status), apiLine(cfg, status), retentionLine(cfg)}
	for _, check := range status.Preflight {
		severity := SeverityOK
		if !check.Passed {
			severity = SeverityError
		}
		lines = append(lines, StatusLine{Label: check.Name, Severity: severity, Detail: check.Detail})
	}
	return lines
}

func daemonLine(reachable bool, status api.DaemonStatus) StatusLine {
	line := StatusLine{Label: "Daemon", Severity: SeverityWarn}
	switch {
	case !reachable:
		line.Detail = "Not running (run `montage start`)"
	case !status.Running:
		line.Detail = "Reachable but not processing jobs"
	default:
		line.Severity = SeverityOK
		line.Detail = fmt.Sprintf("Running (pid %d)", status.PID)
	}
	return line
}

func apiLine(cfg *config.Config, status api.DaemonStatus) StatusLine {
	line := StatusLine{Label: "HTTP API", Severity: SeverityInfo}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	switch {
	case status.APIAddress != "":
		line.Severity = SeverityOK
		line.Detail = "Listening on " + status.APIAddress
	case bind == "":
		line.Detail = "Disabled"
	default:
		line.Detail = "Configured for " + bind
	}
	return line
}

func retentionLine(cfg *config.Config) StatusLine {
	schedule := strings.TrimSpace(cfg.Retention.CleanupSchedule)
	if schedule == "" {
		return StatusLine{Label: "Retention", Severity: SeverityWarn, Detail: "No cleanup schedule"}
	}
	return StatusLine{Label: "Retention", Severity: SeverityOK, Detail: schedule}
}

// BuildDependencySummary counts available and missing binaries.
func BuildDependencySummary(statuses []api.DependencyStatus) DependencySummary {
	if len(statuses) == 0 {
		return DependencySummary{Severity: SeverityInfo, Detail: "No dependency checks configured"}
	}
	summary := DependencySummary{Total: len(statuses)}
	for _, dep := range statuses {
		switch {
		case dep.Available:
			summary.Available++
		case dep.Optional:
			summary.MissingOptional++
		default:
			summary.MissingRequired++
		}
	}

	summary.Severity = SeverityOK
	summary.Detail = fmt.Sprintf("%d/%d available", summary.Available, summary.Total)
	if summary.MissingRequired+summary.MissingOptional > 0 {
		summary.Severity = SeverityWarn
		if summary.MissingRequired > 0 {
			summary.Severity = SeverityError
		}
		summary.Detail += fmt.Sprintf(" (missing: %d required, %d optional)", summary.MissingRequired, summary.MissingOptional)
	}
	return summary
}
