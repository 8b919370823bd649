package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
)

const healthProbeTimeout = 2 * time.Second

// Stats counts jobs per status. Statuses with no jobs are absent.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan job stats: %w", err)
		}
		stats[status] = n
	}
	return stats, rows.Err()
}

// Health folds Stats into per-lifecycle totals.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	var h HealthSummary
	buckets := map[Status]*int{
		StatusPending:    &h.Pending,
		StatusProcessing: &h.Processing,
		StatusFailed:     &h.Failed,
		StatusCompleted:  &h.Completed,
	}
	for status, n := range stats {
		h.Total += n
		if bucket, ok := buckets[status]; ok {
			*bucket += n
		}
	}
	return h, nil
}

// CheckHealth inspects the database file and schema. A missing file is
// reported without error. When a probe query fails its message is also
// recorded in the returned report.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}
	if s.path == "" {
		return health, errors.New("jobs database path is unknown")
	}

	info, err := os.Stat(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return health, nil
	case err != nil:
		return health, fmt.Errorf("stat jobs database: %w", err)
	case info.IsDir():
		return health, fmt.Errorf("jobs database path %q is a directory", s.path)
	}
	health.DatabaseExists = true
	if s.db == nil {
		return health, errors.New("jobs database connection unavailable")
	}

	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	probes := []struct {
		name string
		run  func(context.Context, *DatabaseHealth) error
	}{
		{"ping jobs database", s.probeReadable},
		{"inspect jobs table", s.probeTable},
		{"integrity check", s.probeIntegrity},
	}
	for _, probe := range probes {
		if err := probe.run(ctx, &health); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("%s: %w", probe.name, err)
		}
	}
	return health, nil
}

func (s *Store) probeReadable(ctx context.Context, h *DatabaseHealth) error {
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	h.DatabaseReadable = true
	if version, err := readUserVersion(ctx, s.db); err == nil {
		h.SchemaVersion = version
	}
	return nil
}

func (s *Store) probeTable(ctx context.Context, h *DatabaseHealth) error {
	var tables int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'jobs'`).Scan(&tables); err != nil {
		return err
	}
	if tables == 0 {
		return nil
	}
	h.TableExists = true

	columns, err := s.tableColumns(ctx)
	if err != nil {
		return err
	}
	for _, col := range expectedColumns {
		if !slices.Contains(columns, col) {
			h.MissingColumns = append(h.MissingColumns, col)
		}
	}
	return s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&h.TotalJobs)
}

func (s *Store) probeIntegrity(ctx context.Context, h *DatabaseHealth) error {
	var result string
	if err := s.db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return err
	}
	h.IntegrityCheck = strings.EqualFold(result, "ok")
	return nil
}

func (s *Store) tableColumns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info('jobs')`)
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}
