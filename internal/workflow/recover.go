package workflow

import (
	"context"
	"fmt"

	"vidredact/internal/logging"
)

// RecoverySummary reports what Recover changed.
type RecoverySummary struct {
	Interrupted []string
	Requeued    []string
}

// Recover fails orders left RUNNING by a previous process and queues every
// PENDING order again in numeric ID order. Call it before Start.
func (m *Manager) Recover(ctx context.Context) (RecoverySummary, error) {
	var summary RecoverySummary

	interrupted, err := m.store.FailInterrupted(ctx)
	if err != nil {
		return summary, fmt.Errorf("fail interrupted orders: %w", err)
	}
	summary.Interrupted = interrupted
	for _, id := range interrupted {
		logging.WarnWithContext(m.logger, "work order interrupted by restart marked failed", "job_interrupted",
			logging.String(logging.FieldWorkID, id),
			logging.String(logging.FieldImpact, "the order must be submitted again"),
		)
	}

	pending, err := m.store.PendingIDs(ctx)
	if err != nil {
		return summary, fmt.Errorf("list pending orders: %w", err)
	}
	for _, id := range pending {
		m.Enqueue(id)
	}
	summary.Requeued = pending
	if len(interrupted) > 0 || len(pending) > 0 {
		m.logger.Info("work queue recovered",
			logging.Int("interrupted", len(interrupted)),
			logging.Int("requeued", len(pending)),
			logging.String(logging.FieldEventType, "queue_recovered"),
		)
	}
	return summary, nil
}
