package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"vidredact/internal/artifacts"
	"vidredact/internal/jobs"
	"vidredact/internal/logging"
	"vidredact/internal/redact"
	"vidredact/internal/services"
)

// processJob handles one dequeued ID. It never returns an error: every outcome
// is persisted or logged.
func (m *Manager) processJob(ctx context.Context, workID string) {
	logger := m.logger.With(logging.String(logging.FieldWorkID, workID))

	order, err := m.store.Get(ctx, workID)
	if errors.Is(err, jobs.ErrNotFound) {
		logger.Warn("queued work order not found; skipping",
			logging.String(logging.FieldEventType, "job_skipped"),
		)
		m.metrics.observe(outcomeSkipped, -1)
		return
	}
	if err != nil {
		m.setLastError(err)
		logging.ErrorWithContext(logger, "failed to load work order", "job_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check job database access"),
		)
		return
	}
	if order.Status != jobs.StatusPending {
		logger.Info("work order not pending; skipping",
			logging.String("status", order.Status.String()),
			logging.String(logging.FieldEventType, "job_skipped"),
		)
		m.metrics.observe(outcomeSkipped, -1)
		return
	}

	jobCtx := services.WithRequestID(services.WithWorkID(ctx, workID), uuid.NewString())
	jobLogger, closer := m.jobLogger(jobCtx, workID)
	defer closer.Close()

	proceed, preflightErr := m.notifier.Preflight(jobCtx, workID)
	if preflightErr == nil && !proceed {
		jobLogger.Info("work order abandoned upstream; leaving it untouched",
			logging.String(logging.FieldEventType, "job_abandoned"),
		)
		m.metrics.observe(outcomeAbandoned, -1)
		return
	}

	if err := m.store.MarkRunning(jobCtx, workID); err != nil {
		m.setLastError(err)
		logging.ErrorWithContext(jobLogger, "failed to mark work order running", "job_transition_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "another process may own this work order"),
		)
		return
	}
	m.setCurrent(workID)
	defer m.setCurrent("")

	set := artifacts.NewSet(workID)
	set.Add(artifacts.KindSource, order.SourcePath, true)
	started := time.Now()

	if preflightErr != nil {
		m.failJob(jobCtx, jobLogger, workID, preflightErr, started)
		m.cleanup(jobCtx, jobLogger, set)
		return
	}

	jobLogger.Info("work order started",
		logging.String("source_file", order.SourcePath),
		logging.String("display_name", order.DisplayName),
		logging.String(logging.FieldEventType, "job_started"),
	)

	if aware, ok := m.runner.(loggerAware); ok {
		aware.SetLogger(jobLogger)
	}
	var result redact.Result
	runErr := m.exec.run(func() error {
		var err error
		result, err = m.runner.Run(jobCtx, redact.JobFromOrder(order), set)
		return err
	})

	done := false
	switch {
	case runErr != nil && ctx.Err() != nil:
		jobLogger.Warn("work order interrupted by shutdown; it will be failed on next start",
			logging.Error(runErr),
			logging.String(logging.FieldEventType, "job_interrupted"),
		)
	case runErr != nil:
		m.failJob(jobCtx, jobLogger, workID, runErr, started)
	default:
		if err := m.finishJob(jobCtx, jobLogger, workID, result, started); err != nil {
			m.failJob(jobCtx, jobLogger, workID, err, started)
		} else {
			done = true
		}
	}
	m.cleanup(jobCtx, jobLogger, set)
	if done {
		m.completeOrder(jobCtx, jobLogger, workID)
	}
}

// finishJob records a successful run as DONE. A returned error means the
// order is still RUNNING and must be failed by the caller.
func (m *Manager) finishJob(ctx context.Context, logger *slog.Logger, workID string, result redact.Result, started time.Time) error {
	elapsed := time.Since(started)
	if err := m.store.MarkDone(ctx, workID, result.ResultURL, result.Durations); err != nil {
		logging.ErrorWithContext(logger, "failed to persist completed work order", "job_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check job database access"),
		)
		return services.Wrap(services.ErrTransient, "workflow", "persist result", "failed to record completed work order", err)
	}
	m.metrics.observe(outcomeDone, elapsed.Seconds())
	m.metrics.redactions.Add(float64(result.Redactions))
	m.recordOutcome(ctx, workID, false)
	logger.Info("work order done",
		logging.String("result_url", result.ResultURL),
		logging.Int("frames", result.Frames),
		logging.Duration("processing_time", elapsed.Round(time.Millisecond)),
		logging.String(logging.FieldEventType, "job_done"),
	)
	return nil
}

func (m *Manager) failJob(ctx context.Context, logger *slog.Logger, workID string, cause error, started time.Time) {
	elapsed := time.Since(started)
	message := failureMessage(cause)
	attrs := []logging.Attr{
		logging.Error(cause),
		logging.String(logging.FieldErrorKind, services.Kind(cause)),
		logging.Duration("processing_time", elapsed.Round(time.Millisecond)),
		logging.Alert("job_failure"),
	}
	var panicErr *PanicError
	if errors.As(cause, &panicErr) {
		attrs = append(attrs, logging.String("stack", string(panicErr.Stack)))
	}
	logging.ErrorWithContext(logger, "work order failed", "job_failed", attrs...)

	m.setLastError(cause)
	m.metrics.observe(outcomeFailed, elapsed.Seconds())
	if err := m.store.MarkFailed(ctx, workID, message); err != nil {
		logging.ErrorWithContext(logger, "failed to persist work order failure", "job_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check job database access"),
		)
		return
	}
	m.recordOutcome(ctx, workID, true)
}

func (m *Manager) cleanup(ctx context.Context, logger *slog.Logger, set *artifacts.Set) {
	if failures := set.Cleanup(ctx, logger); len(failures) > 0 {
		logging.WarnWithContext(logger, "some artifacts could not be removed", "artifact_cleanup_incomplete",
			logging.Int("failures", len(failures)),
			logging.String(logging.FieldImpact, "files remain on disk until the next stale sweep"),
		)
	}
}

// jobLogger opens the per-order log file, falling back to the daemon logger.
func (m *Manager) jobLogger(ctx context.Context, workID string) (*slog.Logger, io.Closer) {
	base := logging.WithContext(ctx, m.logger)
	if m.cfg == nil {
		return base, io.NopCloser(nil)
	}
	logger, closer, err := logging.OpenJobLogger(base, m.cfg.JobLogDir(), m.cfg.Logging.Format, m.cfg.Logging.Level, workID)
	if err != nil {
		logging.WarnWithContext(base, "job log unavailable", "job_log_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job output only appears in the daemon log"),
		)
		return base, io.NopCloser(nil)
	}
	return logger, closer
}

func failureMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		return "unknown error"
	}
	return message
}
