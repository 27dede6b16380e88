package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/raykavin/perfscope/pkg/core"
	"github.com/raykavin/perfscope/pkg/feed"
	"github.com/raykavin/perfscope/pkg/logger"
	"github.com/schollz/progressbar/v3"
)

// Importer fills a snapshot storage from CSV files, one test per file
type Importer struct {
	storage  core.SnapshotStorage
	log      logger.Logger
	progress io.Writer
}

// ImportOption configures an Importer
type ImportOption func(*Importer)

// WithProgressWriter sends the progress bar to w instead of stderr
func WithProgressWriter(w io.Writer) ImportOption {
	return func(importer *Importer) {
		importer.progress = w
	}
}

// NewImporter creates an importer writing into storage
func NewImporter(storage core.SnapshotStorage, log logger.Logger, options ...ImportOption) Importer {
	importer := Importer{
		storage: storage,
		log:     log,
	}
	for _, option := range options {
		option(&importer)
	}
	return importer
}

// TestID names the test a CSV file is stored as: its base name without
// extension
func TestID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Import stores every file as a test of runID and returns how many samples
// were written. It stops at the first failing file.
func (i Importer) Import(ctx context.Context, runID string, files ...string) (int, error) {
	bar := i.progressBar(len(files))
	defer func() {
		if err := bar.Close(); err != nil {
			i.log.Warnf("Failed to close progress bar: %s", err.Error())
		}
	}()

	total := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		csvFeed, err := feed.NewCSVFeed(file)
		if err != nil {
			return total, fmt.Errorf("failed to read %s: %w", file, err)
		}

		testID := TestID(file)
		snapshot := csvFeed.Snapshot()
		if err := i.storage.Save(runID, testID, snapshot); err != nil {
			return total, fmt.Errorf("failed to store %s: %w", file, err)
		}

		samples := countSamples(snapshot)
		total += samples
		i.log.WithFields(map[string]any{"run": runID, "test": testID, "samples": samples}).Debug("snapshot imported")

		if err := bar.Add(1); err != nil {
			i.log.Warnf("Failed to update progress bar: %s", err.Error())
		}
	}

	i.log.Infof("Imported %d samples from %d files", total, len(files))
	return total, nil
}

func (i Importer) progressBar(files int) *progressbar.ProgressBar {
	if i.progress == nil {
		return progressbar.Default(int64(files), "importing")
	}
	return progressbar.NewOptions(files,
		progressbar.OptionSetWriter(i.progress),
		progressbar.OptionSetDescription("importing"),
	)
}
