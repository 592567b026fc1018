package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"vidredact/internal/api"
	"vidredact/internal/blobstore"
	"vidredact/internal/config"
	"vidredact/internal/daemon"
	"vidredact/internal/daemonctl"
	"vidredact/internal/deps"
	"vidredact/internal/detect"
	"vidredact/internal/jobs"
	"vidredact/internal/logging"
	"vidredact/internal/redact"
	"vidredact/internal/transcode"
	"vidredact/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the vidredact daemon and blocks until ctx ends or the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, logPath, err := logging.NewFromConfig(cfg, opts.LogLevel, opts.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "vidredact-*.log", Exclude: []string{logPath}},
	)
	logDependencySnapshot(signalCtx, logger, cfg)

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open work order store", logging.Error(err))
		return err
	}

	blobs, err := blobstore.NewMinio(cfg.Storage)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create blob store: %w", err)
	}

	engine := &redact.Engine{
		Transcoder:   transcode.NewFFmpeg(cfg.FFmpegBinary(), cfg.FFprobeBinary(), float64(cfg.Transcoder.DefaultFrameRate)),
		Detector:     detect.NewHTTPClient(cfg.Detector.URL, cfg.DetectorTimeout()),
		Blobs:        blobs,
		ProcessedDir: cfg.ProcessedDir(),
		CompleteDir:  cfg.CompleteDir(),
		Logger:       logger,
	}
	manager := workflow.NewManager(cfg, store, engine, logger,
		workflow.WithMetrics(workflow.NewMetrics(prometheus.DefaultRegisterer)))
	server := api.New(cfg, api.Deps{
		Store:    store,
		Blobs:    blobs,
		Queue:    manager,
		Status:   manager,
		Gatherer: prometheus.DefaultGatherer,
	}, logger)

	d, err := daemon.New(cfg, store, manager, server, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check configuration, the work directory and the job database"),
		)
		return err
	}

	// The pid file is only written once this process owns the lock.
	pidPath := daemonctl.PIDPath(cfg)
	if err := daemonctl.WritePID(pidPath); err != nil {
		logging.WarnWithContext(logger, "pid file not written", "pid_file_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "`vidredact stop` cannot signal this process"),
		)
	}
	defer os.Remove(pidPath)

	<-signalCtx.Done()
	logger.Info("vidredact daemon shutting down")
	return nil
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	statuses := deps.CheckBinaries(ctx, deps.Requirements(cfg))
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("detector_url", cfg.Detector.URL),
		logging.String("storage_endpoint", cfg.Storage.Endpoint),
		logging.Bool("callbacks_configured", cfg.Callbacks.BaseURL != ""),
	}
	for _, status := range statuses {
		attrs = append(attrs,
			logging.Bool(strings.ToLower(status.Name)+"_available", status.Available),
			logging.String(strings.ToLower(status.Name)+"_binary", status.Command),
		)
		if status.Version != "" {
			attrs = append(attrs, logging.String(strings.ToLower(status.Name)+"_version", status.Version))
		}
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
	for _, missing := range deps.Missing(statuses) {
		logging.WarnWithContext(logger, "required binary unavailable", "dependency_missing",
			logging.String("binary", missing.Command),
			logging.String("detail", missing.Detail),
			logging.String(logging.FieldImpact, "work orders will fail until it is installed"),
		)
	}
}
