package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"vidredact/internal/config"
	"vidredact/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustInsertOrder inserts a PENDING order whose source file exists under the
// downloads directory, and returns the stored record.
func MustInsertOrder(t testing.TB, cfg *config.Config, store jobs.Repository, workID string) *jobs.WorkOrder {
	t.Helper()

	source := filepath.Join(cfg.DownloadsDir(), workID+".mp4")
	WriteFile(t, source, 64)
	order := &jobs.WorkOrder{
		WorkID:              workID,
		SourcePath:          source,
		DisplayName:         workID + "_redacted",
		ConfidenceThreshold: 0.5,
		MosaicStrength:      15,
	}
	ctx := context.Background()
	if err := store.Insert(ctx, order); err != nil {
		t.Fatalf("insert %s: %v", workID, err)
	}
	stored, err := store.Get(ctx, workID)
	if err != nil {
		t.Fatalf("get %s: %v", workID, err)
	}
	return stored
}
