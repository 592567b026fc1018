package jobs

import "context"

// Repository is the job-record store used by the pipeline and API.
type Repository interface {
	Insert(ctx context.Context, order *WorkOrder) error
	Get(ctx context.Context, workID string) (*WorkOrder, error)
	Delete(ctx context.Context, workID string) error
	MarkRunning(ctx context.Context, workID string) error
	MarkDone(ctx context.Context, workID, resultURL string, durations Durations) error
	MarkFailed(ctx context.Context, workID, message string) error
	PendingIDs(ctx context.Context) ([]string, error)
}

var _ Repository = (*Store)(nil)
