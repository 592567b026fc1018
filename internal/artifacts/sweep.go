package artifacts

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidredact/internal/logging"
)

// SweepResult contains the outcome of a stale file sweep.
type SweepResult struct {
	Removed []string
	Errors  []Failure
}

// SweepStale removes regular files older than maxAge from dirs, except the
// paths listed in keep (for example sources of still-pending orders). A
// non-positive maxAge disables the sweep.
func SweepStale(ctx context.Context, logger *slog.Logger, maxAge time.Duration, keep map[string]struct{}, dirs ...string) SweepResult {
	result := SweepResult{}
	if maxAge <= 0 {
		return result
	}
	cutoff := time.Now().Add(-maxAge)

	for _, dir := range dirs {
		if ctx.Err() != nil {
			return result
		}
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				result.Errors = append(result.Errors, Failure{Path: dir, Err: err})
			}
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if _, ok := keep[path]; ok {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				result.Errors = append(result.Errors, Failure{Path: path, Err: err})
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(path); err != nil {
				result.Errors = append(result.Errors, Failure{Path: path, Err: err})
				logging.WarnWithContext(logger, "failed to remove stale artifact", "artifact_sweep_failed",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check work_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
				continue
			}
			result.Removed = append(result.Removed, path)
			if logger != nil {
				logger.Info("removed stale artifact",
					logging.String("path", path),
					logging.Duration("age", time.Since(info.ModTime()).Round(time.Second)),
					logging.String(logging.FieldEventType, "artifact_sweep"),
				)
			}
		}
	}
	return result
}
