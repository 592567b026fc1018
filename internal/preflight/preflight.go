package preflight

import (
	"context"
	"strings"

	"vidredact/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Pinger is anything with a cheap reachability probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Targets are the remote collaborators RunAll probes. Nil entries are skipped.
type Targets struct {
	Detector Pinger
	Blobs    Pinger
}

// CheckWorkTree verifies every directory the pipeline writes to.
func CheckWorkTree(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Downloads directory", cfg.DownloadsDir()),
		CheckDirectoryAccess("Processed directory", cfg.ProcessedDir()),
		CheckDirectoryAccess("Complete directory", cfg.CompleteDir()),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
}

// RunAll executes the work-tree checks plus reachability of the configured
// collaborators.
func RunAll(ctx context.Context, cfg *config.Config, targets Targets) []Result {
	if cfg == nil {
		return nil
	}
	results := CheckWorkTree(cfg)
	if targets.Detector != nil {
		results = append(results, CheckPing(ctx, "Detector", targets.Detector))
	}
	if targets.Blobs != nil {
		results = append(results, CheckPing(ctx, "Blob bucket "+cfg.Storage.Bucket, targets.Blobs))
	}
	if strings.TrimSpace(cfg.Callbacks.BaseURL) != "" {
		results = append(results, CheckCallbackHost(ctx, cfg.Callbacks.BaseURL))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
