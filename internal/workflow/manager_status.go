package workflow

import (
	"cmp"
	"context"
	"slices"

	"montage/internal/logging"
	"montage/internal/queue"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool
	Workers    int
	LastError  string
	LastJob    *queue.Job
	ActiveJobs []queue.Job
	QueueStats map[queue.Status]int
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running, Workers: m.workers}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastJob != nil {
		copy := *m.lastJob
		summary.LastJob = &copy
	}
	for _, job := range m.active {
		summary.ActiveJobs = append(summary.ActiveJobs, job)
	}
	m.mu.RUnlock()

	slices.SortFunc(summary.ActiveJobs, func(a, b queue.Job) int {
		return cmp.Compare(a.ID, b.ID)
	})

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	summary.QueueStats = stats
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *queue.Job) {
	m.mu.Lock()
	if job != nil {
		copy := *job
		m.lastJob = &copy
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}

func (m *Manager) setActive(job *queue.Job) {
	m.mu.Lock()
	m.active[job.ID] = *job
	m.mu.Unlock()
}

func (m *Manager) clearActive(id int64) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}
