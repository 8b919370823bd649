package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const jobColumns = "id, session_id, correlation_id, audio_path, subtitle_path, clip_paths, output_path, status, stage, progress_percent, progress_message, error_kind, error_message, error_detail, published_url, created_at, updated_at, started_at, finished_at, last_heartbeat"

var expectedColumns = []string{
	"id", "session_id", "correlation_id", "audio_path", "subtitle_path", "clip_paths",
	"output_path", "status", "stage", "progress_percent", "progress_message",
	"error_kind", "error_message", "error_detail", "published_url",
	"created_at", "updated_at", "started_at", "finished_at", "last_heartbeat",
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              int64
		sessionID       string
		correlationID   string
		audioPath       string
		subtitlePath    string
		clipPathsRaw    string
		outputPath      string
		statusStr       string
		stage           sql.NullString
		progressPercent sql.NullFloat64
		progressMessage sql.NullString
		errorKind       sql.NullString
		errorMessage    sql.NullString
		errorDetail     sql.NullString
		publishedURL    sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
		startedRaw      sql.NullString
		finishedRaw     sql.NullString
		heartbeatRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sessionID,
		&correlationID,
		&audioPath,
		&subtitlePath,
		&clipPathsRaw,
		&outputPath,
		&statusStr,
		&stage,
		&progressPercent,
		&progressMessage,
		&errorKind,
		&errorMessage,
		&errorDetail,
		&publishedURL,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		SessionID:       sessionID,
		CorrelationID:   correlationID,
		AudioPath:       audioPath,
		SubtitlePath:    subtitlePath,
		OutputPath:      outputPath,
		Status:          Status(statusStr),
		Stage:           stage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
		ErrorKind:       errorKind.String,
		ErrorMessage:    errorMessage.String,
		ErrorDetail:     errorDetail.String,
		PublishedURL:    publishedURL.String,
	}
	clips, err := decodeClipPaths(clipPathsRaw)
	if err != nil {
		return nil, fmt.Errorf("job %d: %w", id, err)
	}
	job.ClipPaths = clips

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	job.StartedAt = parseOptionalTime(startedRaw)
	job.FinishedAt = parseOptionalTime(finishedRaw)
	job.LastHeartbeat = parseOptionalTime(heartbeatRaw)
	return job, nil
}

func encodeClipPaths(paths []string) (string, error) {
	if paths == nil {
		paths = []string{}
	}
	data, err := json.Marshal(paths)
	if err != nil {
		return "", fmt.Errorf("encode clip paths: %w", err)
	}
	return string(data), nil
}

func decodeClipPaths(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var paths []string
	if err := json.Unmarshal([]byte(raw), &paths); err != nil {
		return nil, fmt.Errorf("decode clip paths: %w", err)
	}
	return paths, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout keeps a fixed-width fraction so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func parseOptionalTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	parsed, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &parsed
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
