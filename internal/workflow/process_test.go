package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vidredact/internal/artifacts"
	"vidredact/internal/jobs"
	"vidredact/internal/logging"
	"vidredact/internal/notifications"
	"vidredact/internal/redact"
	"vidredact/internal/services"
	"vidredact/internal/testsupport"
)

// newSyncManager builds a manager whose jobs are driven directly through
// processJob, without the background worker.
func newSyncManager(t *testing.T, store Store, runner Runner, notifier notifications.Client) *Manager {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	m := NewManager(cfg, store, runner, logging.NewNop(), WithNotifier(notifier))
	m.exec = newExecutor()
	t.Cleanup(m.exec.close)
	return m
}

func pendingOrder(t *testing.T, workID string) *jobs.WorkOrder {
	t.Helper()
	source := filepath.Join(t.TempDir(), workID+".mp4")
	testsupport.WriteFile(t, source, 32)
	return &jobs.WorkOrder{
		WorkID:              workID,
		SourcePath:          source,
		DisplayName:         "clip",
		ConfidenceThreshold: 0.5,
		MosaicStrength:      15,
		Status:              jobs.StatusPending,
	}
}

func TestProcessJobSuccess(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	runner := new(MockRunner)
	notifier := new(MockNotifier)
	m := newSyncManager(t, store, runner, notifier)

	order := pendingOrder(t, "M001")
	intermediate := filepath.Join(t.TempDir(), "processed_M001.mp4")
	durations := jobs.Durations{jobs.ClassKnife: 0.03}
	recipient := &notifications.Recipient{Email: "a@example.com", Name: "Ana"}

	store.On("Get", mock.Anything, "M001").Return(order, nil)
	notifier.On("Preflight", mock.Anything, "M001").Return(true, nil)
	store.On("MarkRunning", mock.Anything, "M001").Return(nil)
	runner.On("Run", mock.Anything, redact.JobFromOrder(order), mock.AnythingOfType("*artifacts.Set")).
		Run(func(args mock.Arguments) {
			set := args.Get(2).(*artifacts.Set)
			set.Add(artifacts.KindIntermediate, intermediate, true)
			testsupport.WriteFile(t, intermediate, 8)
		}).
		Return(redact.Result{ResultURL: "memory://results/M001/clip.mp4", Durations: durations, Redactions: 1}, nil)
	store.On("MarkDone", mock.Anything, "M001", "memory://results/M001/clip.mp4", durations).Return(nil)
	notifier.On("Complete", mock.Anything, "M001").Return(recipient, nil)
	notifier.On("SendEmail", mock.Anything, *recipient).Return(nil)

	m.processJob(ctx, "M001")

	store.AssertExpectations(t)
	runner.AssertExpectations(t)
	notifier.AssertExpectations(t)
	store.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
	assert.NoFileExists(t, order.SourcePath)
	assert.NoFileExists(t, intermediate)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.jobsTotal.WithLabelValues(outcomeDone)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.redactions))
	assert.FileExists(t, logging.JobLogPath(m.cfg.JobLogDir(), "M001"))
}

func TestProcessJobAbandonedLeavesStateUntouched(t *testing.T) {
	store := new(MockStore)
	runner := new(MockRunner)
	notifier := new(MockNotifier)
	m := newSyncManager(t, store, runner, notifier)

	order := pendingOrder(t, "P4")
	store.On("Get", mock.Anything, "P4").Return(order, nil)
	notifier.On("Preflight", mock.Anything, "P4").Return(false, nil)

	m.processJob(context.Background(), "P4")

	store.AssertNotCalled(t, "MarkRunning", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	assert.FileExists(t, order.SourcePath)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.jobsTotal.WithLabelValues(outcomeAbandoned)))
}

func TestProcessJobPreflightErrorFails(t *testing.T) {
	store := new(MockStore)
	runner := new(MockRunner)
	notifier := new(MockNotifier)
	m := newSyncManager(t, store, runner, notifier)

	order := pendingOrder(t, "M2")
	preflightErr := services.Wrap(services.ErrExternalTool, "notify", "GET /updateprocess", "callback unreachable", errors.New("dial tcp: refused"))
	store.On("Get", mock.Anything, "M2").Return(order, nil)
	notifier.On("Preflight", mock.Anything, "M2").Return(false, preflightErr)
	store.On("MarkRunning", mock.Anything, "M2").Return(nil)
	store.On("MarkFailed", mock.Anything, "M2", mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "callback unreachable")
	})).Return(nil)

	m.processJob(context.Background(), "M2")

	store.AssertExpectations(t)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	assert.NoFileExists(t, order.SourcePath)
}

func TestProcessJobRunnerFailureMarksFailedAndCleansUp(t *testing.T) {
	store := new(MockStore)
	runner := new(MockRunner)
	notifier := new(MockNotifier)
	m := newSyncManager(t, store, runner, notifier)

	order := pendingOrder(t, "M3")
	dump := filepath.Join(t.TempDir(), "detection_results_M3.json")
	store.On("Get", mock.Anything, "M3").Return(order, nil)
	notifier.On("Preflight", mock.Anything, "M3").Return(true, nil)
	store.On("MarkRunning", mock.Anything, "M3").Return(nil)
	runner.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(2).(*artifacts.Set).Add(artifacts.KindDetections, dump, true)
			testsupport.WriteFile(t, dump, 4)
		}).
		Return(redact.Result{}, errors.New("detector unavailable"))
	store.On("MarkFailed", mock.Anything, "M3", "detector unavailable").Return(nil)
	store.On("Stats", mock.Anything).Return(map[jobs.Status]int{jobs.StatusFailed: 1}, nil)

	m.processJob(context.Background(), "M3")

	store.AssertExpectations(t)
	notifier.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	assert.NoFileExists(t, order.SourcePath)
	assert.NoFileExists(t, dump)
	status := m.Status(context.Background())
	assert.Equal(t, 1, status.Failed)
	assert.Equal(t, "detector unavailable", status.LastError)
}

func TestProcessJobPanicBecomesFailure(t *testing.T) {
	store := new(MockStore)
	notifier := new(MockNotifier)
	runner := runnerFunc(func(context.Context, redact.Job, *artifacts.Set) (redact.Result, error) {
		panic("index out of range")
	})
	m := newSyncManager(t, store, runner, notifier)

	order := pendingOrder(t, "M5")
	store.On("Get", mock.Anything, "M5").Return(order, nil)
	notifier.On("Preflight", mock.Anything, "M5").Return(true, nil)
	store.On("MarkRunning", mock.Anything, "M5").Return(nil)
	store.On("MarkFailed", mock.Anything, "M5", mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "panicked") && strings.Contains(msg, "index out of range")
	})).Return(nil)

	m.processJob(context.Background(), "M5")

	store.AssertExpectations(t)
	assert.NoFileExists(t, order.SourcePath)
}

func TestProcessJobSkipsOrdersThatAreNotPending(t *testing.T) {
	tests := []struct {
		name  string
		order *jobs.WorkOrder
		err   error
	}{
		{name: "missing", err: jobs.ErrNotFound},
		{name: "done", order: &jobs.WorkOrder{WorkID: "M7", Status: jobs.StatusDone}},
		{name: "running", order: &jobs.WorkOrder{WorkID: "M7", Status: jobs.StatusRunning}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			runner := new(MockRunner)
			notifier := new(MockNotifier)
			m := newSyncManager(t, store, runner, notifier)

			if tt.order != nil {
				store.On("Get", mock.Anything, "M7").Return(tt.order, nil)
			} else {
				store.On("Get", mock.Anything, "M7").Return(nil, tt.err)
			}

			m.processJob(context.Background(), "M7")

			notifier.AssertNotCalled(t, "Preflight", mock.Anything, mock.Anything)
			store.AssertNotCalled(t, "MarkRunning", mock.Anything, mock.Anything)
			runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestProcessJobCompletionFailuresKeepOrderDone(t *testing.T) {
	store := new(MockStore)
	runner := new(MockRunner)
	notifier := new(MockNotifier)
	m := newSyncManager(t, store, runner, notifier)

	order := pendingOrder(t, "P9")
	store.On("Get", mock.Anything, "P9").Return(order, nil)
	notifier.On("Preflight", mock.Anything, "P9").Return(true, nil)
	store.On("MarkRunning", mock.Anything, "P9").Return(nil)
	runner.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(redact.Result{ResultURL: "u"}, nil)
	store.On("MarkDone", mock.Anything, "P9", "u", jobs.Durations(nil)).Return(nil)
	notifier.On("Complete", mock.Anything, "P9").Return(&notifications.Recipient{Email: "x@example.com"}, nil)
	notifier.On("SendEmail", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	store.On("Stats", mock.Anything).Return(map[jobs.Status]int{jobs.StatusDone: 1}, nil)

	m.processJob(context.Background(), "P9")

	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
	store.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
	require.Equal(t, 1, m.Status(context.Background()).Processed)
}

func TestProcessJobUnrecordedResultFailsWithoutNotifying(t *testing.T) {
	store := new(MockStore)
	runner := new(MockRunner)
	notifier := new(MockNotifier)
	m := newSyncManager(t, store, runner, notifier)

	order := pendingOrder(t, "M12")
	store.On("Get", mock.Anything, "M12").Return(order, nil)
	notifier.On("Preflight", mock.Anything, "M12").Return(true, nil)
	store.On("MarkRunning", mock.Anything, "M12").Return(nil)
	runner.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(redact.Result{ResultURL: "u"}, nil)
	store.On("MarkDone", mock.Anything, "M12", "u", jobs.Durations(nil)).Return(errors.New("database is locked"))
	store.On("MarkFailed", mock.Anything, "M12", mock.MatchedBy(func(message string) bool {
		return strings.Contains(message, "database is locked")
	})).Return(nil)
	store.On("Stats", mock.Anything).Return(map[jobs.Status]int{jobs.StatusFailed: 1}, nil)

	m.processJob(context.Background(), "M12")

	store.AssertExpectations(t)
	notifier.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
	assert.NoFileExists(t, order.SourcePath)
	status := m.Status(context.Background())
	assert.Equal(t, 1, status.Failed)
	assert.Equal(t, 0, status.Processed)
	assert.Contains(t, status.LastError, "database is locked")
}

func TestProcessJobMissingJobLogDirFallsBack(t *testing.T) {
	store := new(MockStore)
	runner := new(MockRunner)
	notifier := new(MockNotifier)
	m := newSyncManager(t, store, runner, notifier)

	blocker := filepath.Join(t.TempDir(), "blocked")
	testsupport.WriteFile(t, blocker, 1)
	m.cfg.Paths.LogDir = blocker

	order := pendingOrder(t, "M8")
	store.On("Get", mock.Anything, "M8").Return(order, nil)
	notifier.On("Preflight", mock.Anything, "M8").Return(false, nil)

	m.processJob(context.Background(), "M8")

	_, err := os.Stat(filepath.Join(blocker, "jobs"))
	assert.Error(t, err)
}
