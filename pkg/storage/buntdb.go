package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/raykavin/perfscope/pkg/core"
	"github.com/tidwall/buntdb"
)

const (
	keyPrefix = "snapshot:"
	keySep    = "/"
	runIndex  = "run_index"
)

// record is what a key holds: the snapshot plus enough to list keys
type record struct {
	RunID    string        `json:"run_id"`
	TestID   string        `json:"test_id"`
	Snapshot core.Snapshot `json:"snapshot"`
	Samples  int           `json:"samples"`
}

// Entry describes one stored snapshot
type Entry struct {
	RunID   string
	TestID  string
	Samples int
}

// BuntStorage implements core.SnapshotStorage using BuntDB
type BuntStorage struct {
	db *buntdb.DB
}

// FromMemory creates an in-memory storage
func FromMemory() (*BuntStorage, error) {
	return NewBuntStorage(":memory:")
}

// FromFile creates a file-based storage
func FromFile(file string) (*BuntStorage, error) {
	return NewBuntStorage(file)
}

// NewBuntStorage creates a new BuntDB storage instance
func NewBuntStorage(sourceFile string) (*BuntStorage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	err = db.CreateIndex(runIndex, keyPrefix+"*", buntdb.IndexJSON("run_id"), buntdb.IndexJSON("test_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &BuntStorage{
		db: db,
	}, nil
}

func snapshotKey(runID, testID string) string {
	return keyPrefix + runID + keySep + testID
}

func countSamples(snapshot core.Snapshot) int {
	total := 0
	for _, groups := range snapshot {
		for _, group := range groups {
			total += group.Len()
		}
	}
	return total
}

// Save stores the snapshot of a test, replacing any previous one
func (b *BuntStorage) Save(runID, testID string, snapshot core.Snapshot) error {
	if runID == "" || testID == "" || strings.Contains(runID, keySep) {
		return fmt.Errorf("invalid snapshot key %q/%q", runID, testID)
	}
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	return b.db.Update(func(tx *buntdb.Tx) error {
		content, err := json.Marshal(record{
			RunID:    runID,
			TestID:   testID,
			Snapshot: snapshot,
			Samples:  countSamples(snapshot),
		})
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}

		_, _, err = tx.Set(snapshotKey(runID, testID), string(content), nil)
		if err != nil {
			return fmt.Errorf("failed to store snapshot: %w", err)
		}

		return nil
	})
}

// Fetch implements core.Fetcher
func (b *BuntStorage) Fetch(ctx context.Context, runID, testID string) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var stored record
	err := b.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(snapshotKey(runID, testID))
		if errors.Is(err, buntdb.ErrNotFound) {
			return fmt.Errorf("%w: %s/%s", core.ErrSnapshotNotFound, runID, testID)
		}
		if err != nil {
			return fmt.Errorf("failed to read snapshot: %w", err)
		}

		if err := json.Unmarshal([]byte(value), &stored); err != nil {
			return fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stored.Snapshot, nil
}

// Entries lists the stored snapshots ordered by run and test
func (b *BuntStorage) Entries() ([]Entry, error) {
	entries := make([]Entry, 0)

	err := b.db.View(func(tx *buntdb.Tx) error {
		var decodeErr error
		err := tx.Ascend(runIndex, func(_, value string) bool {
			var stored record
			if decodeErr = json.Unmarshal([]byte(value), &stored); decodeErr != nil {
				return false
			}
			entries = append(entries, Entry{RunID: stored.RunID, TestID: stored.TestID, Samples: stored.Samples})
			return true
		})

		if err != nil {
			return fmt.Errorf("failed to iterate over snapshots: %w", err)
		}
		if decodeErr != nil {
			return fmt.Errorf("failed to unmarshal snapshot: %w", decodeErr)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Delete removes the snapshot of a test
func (b *BuntStorage) Delete(runID, testID string) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(snapshotKey(runID, testID))
		if errors.Is(err, buntdb.ErrNotFound) {
			return fmt.Errorf("%w: %s/%s", core.ErrSnapshotNotFound, runID, testID)
		}
		return err
	})
}

// Close closes the database connection
func (b *BuntStorage) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
