package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewJob inserts a pending job.
func (s *Store) NewJob(ctx context.Context, params NewJobParams) (*Job, error) {
	var missing []string
	if strings.TrimSpace(params.AudioPath) == "" {
		missing = append(missing, "audio path")
	}
	if strings.TrimSpace(params.SubtitlePath) == "" {
		missing = append(missing, "subtitle path")
	}
	if len(params.ClipPaths) == 0 {
		missing = append(missing, "clip paths")
	}
	if strings.TrimSpace(params.OutputPath) == "" {
		missing = append(missing, "output path")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("new job: missing %s", strings.Join(missing, ", "))
	}
	if params.SessionID == "" {
		params.SessionID = uuid.NewString()
	}
	if params.CorrelationID == "" {
		params.CorrelationID = uuid.NewString()
	}
	clips, err := encodeClipPaths(params.ClipPaths)
	if err != nil {
		return nil, err
	}

	timestamp := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            session_id, correlation_id, audio_path, subtitle_path, clip_paths, output_path,
            status, progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		params.SessionID,
		params.CorrelationID,
		params.AudioPath,
		params.SubtitlePath,
		clips,
		params.OutputPath,
		StatusPending,
		0.0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. It returns nil when no job matches.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// GetBySession returns the most recent job for an upload session.
func (s *Store) GetBySession(ctx context.Context, sessionID string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE session_id = ? ORDER BY id DESC LIMIT 1`,
		sessionID,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job by session: %w", err)
	}
	return job, nil
}

// FindByOutput returns the most recent job writing to outputPath.
func (s *Store) FindByOutput(ctx context.Context, outputPath string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE output_path = ? ORDER BY id DESC LIMIT 1`,
		outputPath,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by output: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	clips, err := encodeClipPaths(job.ClipPaths)
	if err != nil {
		return err
	}
	job.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs
         SET session_id = ?, correlation_id = ?, audio_path = ?, subtitle_path = ?, clip_paths = ?,
             output_path = ?, status = ?, stage = ?, progress_percent = ?, progress_message = ?,
             error_kind = ?, error_message = ?, error_detail = ?, published_url = ?,
             updated_at = ?, started_at = ?, finished_at = ?, last_heartbeat = ?
         WHERE id = ?`,
		job.SessionID,
		job.CorrelationID,
		job.AudioPath,
		job.SubtitlePath,
		clips,
		job.OutputPath,
		job.Status,
		nullableString(job.Stage),
		job.ProgressPercent,
		nullableString(job.ProgressMessage),
		nullableString(job.ErrorKind),
		nullableString(job.ErrorMessage),
		nullableString(job.ErrorDetail),
		nullableString(job.PublishedURL),
		formatTime(job.UpdatedAt),
		nullableTime(job.StartedAt),
		nullableTime(job.FinishedAt),
		nullableTime(job.LastHeartbeat),
		job.ID,
	); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// UpdateProgress records the pipeline stage of a processing job without
// touching the rest of the row.
func (s *Store) UpdateProgress(ctx context.Context, id int64, stage string, percent float64, message string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET stage = ?, progress_percent = ?, progress_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		nullableString(stage),
		percent,
		nullableString(message),
		formatTime(time.Now()),
		id,
		StatusProcessing,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), newest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at DESC, id DESC`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClaimNext atomically moves the oldest pending job to processing and
// returns it. It returns nil when nothing is pending.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	var job *Job
	err := retryOnBusy(ctx, func() error {
		now := formatTime(time.Now())
		row := s.db.QueryRowContext(
			ctx,
			`UPDATE jobs
             SET status = ?, stage = 'start', progress_percent = 0, progress_message = NULL,
                 error_kind = NULL, error_message = NULL, error_detail = NULL,
                 started_at = ?, finished_at = NULL, last_heartbeat = ?, updated_at = ?
             WHERE id = (
                 SELECT id FROM jobs WHERE status = ? ORDER BY created_at, id LIMIT 1
             ) AND status = ?
             RETURNING `+jobColumns,
			StatusProcessing,
			now, now, now,
			StatusPending,
			StatusPending,
		)
		claimed, scanErr := scanJob(row)
		if scanErr != nil {
			return scanErr
		}
		job = claimed
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim next job: %w", err)
	}
	return job, nil
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed jobs.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every job that is not processing.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status != ?`, StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed jobs.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}
