package workflow

import (
	"context"

	"vidredact/internal/jobs"
	"vidredact/internal/logging"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool
	Current    string
	Queued     []string
	Processed  int
	Failed     int
	LastError  string
	LastOrder  *jobs.WorkOrder
	OrderStats map[jobs.Status]int
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:   m.running,
		Current:   m.current,
		Processed: m.processed,
		Failed:    m.failed,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastOrder != nil {
		last := *m.lastOrder
		summary.LastOrder = &last
	}
	m.mu.RUnlock()

	summary.Queued = m.queue.snapshot()
	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read order stats", logging.Error(err))
	}
	summary.OrderStats = stats
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setCurrent(workID string) {
	m.mu.Lock()
	m.current = workID
	m.mu.Unlock()
}

func (m *Manager) recordOutcome(ctx context.Context, workID string, failed bool) {
	order, err := m.store.Get(ctx, workID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if failed {
		m.failed++
	} else {
		m.processed++
	}
	if err == nil {
		m.lastOrder = order
	}
}
