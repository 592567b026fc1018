package daemon

import (
	"context"

	"vidredact/internal/artifacts"
	"vidredact/internal/jobs"
	"vidredact/internal/logging"
)

// maintain prunes old per-order logs and removes artifacts orphaned by a
// crash. Sources of orders still PENDING are kept so they can be processed.
func (d *Daemon) maintain(ctx context.Context) {
	removedLogs := logging.CleanupOldLogs(d.logger, d.cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: d.cfg.JobLogDir(), Pattern: "*.log"},
	)

	keep := make(map[string]struct{})
	pending, err := d.store.List(ctx, jobs.StatusPending)
	if err != nil {
		logging.WarnWithContext(d.logger, "stale artifact sweep skipped", "artifact_sweep_skipped",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check job database access"),
			logging.String(logging.FieldImpact, "files from crashed runs remain on disk"),
		)
		return
	}
	for _, order := range pending {
		keep[order.SourcePath] = struct{}{}
	}

	result := artifacts.SweepStale(ctx, d.logger, d.cfg.StaleArtifactAge(), keep,
		d.cfg.DownloadsDir(),
		d.cfg.ProcessedDir(),
		d.cfg.CompleteDir(),
	)
	if removedLogs > 0 || len(result.Removed) > 0 || len(result.Errors) > 0 {
		d.logger.Info("startup maintenance finished",
			logging.Int("job_logs_removed", removedLogs),
			logging.Int("artifacts_removed", len(result.Removed)),
			logging.Int("artifact_errors", len(result.Errors)),
			logging.String(logging.FieldEventType, "startup_maintenance"),
		)
	}
}
