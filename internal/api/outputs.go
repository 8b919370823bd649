package api

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"montage/internal/queue"
	"montage/internal/services"
	"montage/internal/staging"
)

// ErrInvalidName is returned for output names that could escape the output
// directory.
var ErrInvalidName = errors.New("invalid file name")

// ValidateOutputName rejects names containing ".." or starting with a path
// separator.
func ValidateOutputName(name string) error {
	if name == "" || strings.Contains(name, "..") || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return services.Wrap(services.ErrValidation, "api", "validate name", name, ErrInvalidName)
	}
	return nil
}

// JobFinder looks up the job writing a given output.
type JobFinder interface {
	FindByOutput(ctx context.Context, outputPath string) (*queue.Job, error)
}

// CheckOutput reports readiness of outputDir/name. A file with a size above
// zero is ready; otherwise the job writing it decides the status. Failure
// diagnostics are never included, only the correlation ID to quote.
func CheckOutput(ctx context.Context, jobs JobFinder, outputDir, name string) (CheckResponse, error) {
	if err := ValidateOutputName(name); err != nil {
		return CheckResponse{}, err
	}
	resp := CheckResponse{Filename: name}
	path := filepath.Join(outputDir, name)

	var job *queue.Job
	if jobs != nil {
		found, err := jobs.FindByOutput(ctx, path)
		if err != nil {
			return CheckResponse{}, err
		}
		job = found
	}

	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
		if job == nil || job.Status == queue.StatusCompleted {
			resp.Ready = true
			resp.Status = CheckReady
			resp.Size = info.Size()
			if job != nil {
				resp.PublishedURL = job.PublishedURL
			}
			return resp, nil
		}
	}

	if job == nil {
		resp.Status = CheckNotFound
		return resp, nil
	}
	resp.CorrelationID = job.CorrelationID
	switch job.Status {
	case queue.StatusPending:
		resp.Status = CheckPending
		resp.Message = "Waiting for a worker"
	case queue.StatusProcessing:
		resp.Status = CheckProcessing
		resp.Stage = job.Stage
		resp.Percent = job.ProgressPercent
		resp.Message = job.ProgressMessage
	case queue.StatusFailed:
		resp.Status = CheckFailed
		resp.Message = "Rendering failed; quote the correlation ID when reporting it"
	default:
		// Completed but the file is gone, typically removed by retention.
		resp.Status = CheckNotFound
	}
	return resp, nil
}

// OutputPath resolves a validated name inside outputDir and reports whether
// it is a regular file.
func OutputPath(outputDir, name string) (string, bool, error) {
	if err := ValidateOutputName(name); err != nil {
		return "", false, err
	}
	path := filepath.Join(outputDir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return path, false, nil
	}
	return path, true, nil
}

// ListOutputs returns the files in outputDir, newest first.
func ListOutputs(outputDir string) (ResultsResponse, error) {
	entries, err := staging.ListEntries(outputDir)
	if err != nil {
		return ResultsResponse{}, err
	}
	entries = slices.DeleteFunc(entries, func(e staging.EntryInfo) bool {
		return e.IsDir || strings.HasPrefix(e.Name, ".")
	})
	slices.SortStableFunc(entries, func(a, b staging.EntryInfo) int {
		return b.ModTime.Compare(a.ModTime)
	})

	resp := ResultsResponse{Results: make([]string, 0, len(entries)), Files: make([]OutputFile, 0, len(entries))}
	for _, e := range entries {
		resp.Results = append(resp.Results, e.Name)
		resp.Files = append(resp.Files, OutputFile{Filename: e.Name, Size: e.Size, Modified: FormatTime(e.ModTime)})
	}
	return resp, nil
}
