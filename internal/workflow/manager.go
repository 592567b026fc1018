package workflow

import (
	"context"
	"log/slog"
	"sync"

	"vidredact/internal/artifacts"
	"vidredact/internal/config"
	"vidredact/internal/jobs"
	"vidredact/internal/logging"
	"vidredact/internal/notifications"
	"vidredact/internal/redact"
)

// Store is the record store the manager drives.
type Store interface {
	jobs.Repository
	FailInterrupted(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (map[jobs.Status]int, error)
}

// Runner executes the redaction stage for one order. *redact.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, job redact.Job, set *artifacts.Set) (redact.Result, error)
}

// loggerAware runners receive the per-order logger before each run.
type loggerAware interface {
	SetLogger(*slog.Logger)
}

// Manager coordinates the work queue and the single job worker.
type Manager struct {
	cfg      *config.Config
	store    Store
	runner   Runner
	notifier notifications.Client
	logger   *slog.Logger
	metrics  *Metrics

	queue *fifo
	exec  *executor

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	current   string
	lastErr   error
	lastOrder *jobs.WorkOrder
	processed int
	failed    int
}

// Option configures optional Manager collaborators.
type Option func(*Manager)

// WithNotifier overrides the callback client built from config.
func WithNotifier(client notifications.Client) Option {
	return func(m *Manager) {
		if client != nil {
			m.notifier = client
		}
	}
}

// WithMetrics overrides the metrics sink.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

// NewManager constructs a workflow manager. Unless overridden, the notifier is
// built from cfg and metrics go to a private registry.
func NewManager(cfg *config.Config, store Store, runner Runner, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:    cfg,
		store:  store,
		runner: runner,
		logger: logging.NewComponentLogger(logger, "workflow"),
		queue:  newFIFO(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.notifier == nil {
		m.notifier = notifications.NewClient(cfg)
	}
	if m.metrics == nil {
		m.metrics = NewMetrics(nil)
	}
	return m
}

// Enqueue appends workID to the FIFO. It never blocks on the worker.
func (m *Manager) Enqueue(workID string) {
	depth := m.queue.push(workID)
	m.metrics.queueDepth.Set(float64(depth))
	m.logger.Debug("work order queued",
		logging.String(logging.FieldWorkID, workID),
		logging.Int("queue_depth", depth),
	)
}
