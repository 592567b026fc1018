package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"vidredact/internal/api"
	"vidredact/internal/config"
	"vidredact/internal/jobs"
	"vidredact/internal/logging"
	"vidredact/internal/preflight"
	"vidredact/internal/workflow"
)

// Daemon owns the worker, the API server and the instance lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobs.Store
	workflow *workflow.Manager
	api      *api.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Workflow     workflow.StatusSummary
	DatabasePath string
	LockFilePath string
	APIAddress   string
}

// New constructs a daemon. server may be nil to run the worker only.
func New(cfg *config.Config, store *jobs.Store, wf *workflow.Manager, server *api.Server, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		api:      server,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the lock, runs startup maintenance, then launches the
// worker and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vidredact daemon instance is already running")
	}

	if failed := preflight.Failed(preflight.CheckWorkTree(d.cfg)); len(failed) > 0 {
		_ = d.lock.Unlock()
		return fmt.Errorf("work tree not usable: %s: %s", failed[0].Name, failed[0].Detail)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.maintain(runCtx)

	summary, err := d.workflow.Recover(runCtx)
	if err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("recover work orders: %w", err)
	}
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if d.api != nil {
		if err := d.api.Start(runCtx); err != nil {
			d.workflow.Stop()
			cancel()
			_ = d.lock.Unlock()
			return fmt.Errorf("start api: %w", err)
		}
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("vidredact daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api_address", d.api.Addr()),
		logging.Int("requeued", len(summary.Requeued)),
		logging.Int("interrupted", len(summary.Interrupted)),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop stops the API and the worker and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.Stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("vidredact daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Workflow:     d.workflow.Status(ctx),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		APIAddress:   d.api.Addr(),
	}
}
