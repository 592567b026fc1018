package workflow

import (
	"context"
	"errors"
)

// Start launches the worker goroutine and its executor.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.runner == nil {
		m.mu.Unlock()
		return errors.New("workflow runner not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.exec = newExecutor()
	m.wg.Add(1)
	m.mu.Unlock()

	go m.runWorker(runCtx)
	m.logger.Info("workflow worker started")
	return nil
}

// Stop cancels the worker and waits for the in-flight order to return.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	exec := m.exec
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	exec.close()
	m.logger.Info("workflow worker stopped")
}

func (m *Manager) runWorker(ctx context.Context) {
	defer m.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		workID, ok := m.queue.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-m.queue.ready:
			}
			continue
		}
		m.metrics.queueDepth.Set(float64(m.queue.len()))
		m.processJob(ctx, workID)
	}
}
