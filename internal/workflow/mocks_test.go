package workflow

import (
	"context"

	"github.com/stretchr/testify/mock"

	"vidredact/internal/artifacts"
	"vidredact/internal/jobs"
	"vidredact/internal/notifications"
	"vidredact/internal/redact"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Insert(ctx context.Context, order *jobs.WorkOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockStore) Get(ctx context.Context, workID string) (*jobs.WorkOrder, error) {
	args := m.Called(ctx, workID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jobs.WorkOrder), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, workID string) error {
	args := m.Called(ctx, workID)
	return args.Error(0)
}

func (m *MockStore) MarkRunning(ctx context.Context, workID string) error {
	args := m.Called(ctx, workID)
	return args.Error(0)
}

func (m *MockStore) MarkDone(ctx context.Context, workID, resultURL string, durations jobs.Durations) error {
	args := m.Called(ctx, workID, resultURL, durations)
	return args.Error(0)
}

func (m *MockStore) MarkFailed(ctx context.Context, workID, message string) error {
	args := m.Called(ctx, workID, message)
	return args.Error(0)
}

func (m *MockStore) PendingIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) FailInterrupted(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) Stats(ctx context.Context) (map[jobs.Status]int, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[jobs.Status]int), args.Error(1)
}

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, job redact.Job, set *artifacts.Set) (redact.Result, error) {
	args := m.Called(ctx, job, set)
	return args.Get(0).(redact.Result), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Preflight(ctx context.Context, workID string) (bool, error) {
	args := m.Called(ctx, workID)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotifier) Complete(ctx context.Context, workID string) (*notifications.Recipient, error) {
	args := m.Called(ctx, workID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notifications.Recipient), args.Error(1)
}

func (m *MockNotifier) SendEmail(ctx context.Context, recipient notifications.Recipient) error {
	args := m.Called(ctx, recipient)
	return args.Error(0)
}

// runnerFunc adapts a function to Runner for tests that need custom behaviour.
type runnerFunc func(ctx context.Context, job redact.Job, set *artifacts.Set) (redact.Result, error)

func (f runnerFunc) Run(ctx context.Context, job redact.Job, set *artifacts.Set) (redact.Result, error) {
	return f(ctx, job, set)
}
