package core

import "context"

// Fetcher loads the metric samples recorded for one test of a run.
type Fetcher interface {
	Fetch(ctx context.Context, runID, testID string) (Snapshot, error)
}

// SnapshotStorage is a Fetcher that can also be filled with snapshots,
// typically by an import step ahead of an offline replay.
type SnapshotStorage interface {
	Fetcher

	// Save stores the snapshot of a test, replacing any previous one
	Save(runID, testID string, snapshot Snapshot) error
}

// FetcherFunc adapts a plain function to the Fetcher interface
type FetcherFunc func(ctx context.Context, runID, testID string) (Snapshot, error)

// Fetch implements Fetcher
func (f FetcherFunc) Fetch(ctx context.Context, runID, testID string) (Snapshot, error) {
	return f(ctx, runID, testID)
}
