package queue

import (
	"context"
	"fmt"
	"time"
)

// ResetStuckProcessing returns every processing job to pending. It is used at
// daemon start, when no worker can still own a job.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, stage = NULL, progress_percent = 0,
             progress_message = 'Reset from stuck processing', last_heartbeat = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		formatTime(time.Now()),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now,
		now,
		id,
		StatusProcessing,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStale returns processing jobs whose heartbeat is older than cutoff
// to pending.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
        SET status = ?, stage = NULL, progress_percent = 0,
            progress_message = 'Reclaimed from stale processing', last_heartbeat = NULL, updated_at = ?
        WHERE status = ? AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
		StatusPending,
		formatTime(time.Now()),
		StatusProcessing,
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// FailProcessing marks every processing job failed with reason. The daemon
// calls it on shutdown for jobs whose workers were interrupted.
func (s *Store) FailProcessing(ctx context.Context, reason string) (int64, error) {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
        SET status = ?, error_kind = 'canceled', error_message = ?, finished_at = ?,
            last_heartbeat = NULL, updated_at = ?
        WHERE status = ?`,
		StatusFailed,
		reason,
		now,
		now,
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("fail processing jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed jobs back to pending. With no ids every failed job
// is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	const reset = `UPDATE jobs
        SET status = ?, stage = NULL, progress_percent = 0, progress_message = 'Retry requested',
            error_kind = NULL, error_message = NULL, error_detail = NULL, published_url = NULL,
            started_at = NULL, finished_at = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status = ?`

	args := []any{StatusPending, formatTime(time.Now()), StatusFailed}
	query := reset
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed jobs: %w", err)
	}
	return res.RowsAffected()
}
